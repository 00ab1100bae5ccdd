// Package domain parses and normalizes snow-science field data files.
//
// # Data Sources
//
// Field campaigns publish delimited text files in a handful of families:
// manual snow-pit profiles (density, temperature, stratigraphy, LWC, SSA),
// penetrometer (SMP) force profiles, ground-penetrating-radar and probe
// point series, met-station time series, and per-pit "site details" files.
// All of them share the same loose layout: a leading metadata block, one
// tabular column header line, and zero or more data rows.
//
// # Header Conventions
//
// Metadata lines are usually marked with a leading "#" and hold one key and
// one value separated by the header separator (default ","):
//
//	# Location,Grand Mesa
//	# PitID,COGM1N20_20200205
//	# Date/Time,2020-02-05-13:30
//	# UTM Zone,12N
//	# Top (cm),Bottom (cm),Density A (kg/m3),Density B (kg/m3)
//
// The last marked line is the column header. Files without a marker are
// split by the alphabetic-character ratio of each line (see LineIsHeader).
// Keys are standardized ("Density A (kg/m3)" → "density_a") and then
// remapped to canonical names ("location" → "site_name", "top" → "depth").
// Units are taken from parentheses or brackets in the raw column header.
//
// # Coordinates
//
// A file may provide latitude/longitude, easting/northing/utm zone, or both.
// ReprojectPoint fills in whichever representation is missing. UTM zones
// assume the NAD83 datum family so every zone maps to EPSG 26900+zone.
//
// # Depth Datums
//
//	snow_height    positive, increasing upward from the ground (pits)
//	surface_datum  zero at the snow surface, negative downward (SMP output)
//	raw SMP        positive, increasing downward in mm from the start of the trace
//
// # Missing Values
//
// "NaN", "None", "", -9999 and floating NaN are all treated as absent.
// Absent values are nil in metadata maps and never defaulted to zero.
//
// # Multi-Sample Variables
//
// Some quantities are measured redundantly (density_a, density_b, ...).
// Those columns are renamed to density_sample_a etc. and the reported value
// is the mean of the non-missing samples.
package domain
