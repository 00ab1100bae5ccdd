// Command inspect parses the header of a data file and prints what the
// uploader would see, without touching a database. With -site it also
// compares a profile header against a site details file.
//
// Usage:
//
//	go run ./cmd/inspect -kind profile -timezone MST data/pits/density.csv
//	go run ./cmd/inspect -kind profile -timezone MST -site data/pits/siteDetails.csv data/pits/density.csv
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/couchcryptid/snowex-etl-service/internal/domain"
)

// report is the JSON document written to stdout.
type report struct {
	File             string            `json:"file"`
	Kind             string            `json:"kind"`
	HeaderLine       int               `json:"header_line"`
	Columns          []string          `json:"columns"`
	DataNames        []string          `json:"data_names"`
	MultiSampleNames []string          `json:"multi_sample_names,omitempty"`
	Units            map[string]string `json:"units,omitempty"`
	Ignored          []string          `json:"ignored,omitempty"`
	Info             domain.Info       `json:"info"`
	Warnings         []string          `json:"warnings,omitempty"`
	Mismatches       map[string]string `json:"mismatches,omitempty"`
}

var kinds = map[string]domain.FileKind{
	"profile": domain.ProfileFile,
	"point":   domain.PointFile,
	"site":    domain.SiteDetailsFile,
}

func main() {
	kind := flag.String("kind", "profile", "file kind: profile, point or site")
	timezone := flag.String("timezone", "", "input timezone of the file")
	rowTZ := flag.Bool("row-based-timezone", false, "timezone comes from each row")
	headerSep := flag.String("header-sep", ",", "metadata key/value separator")
	allowMapFailure := flag.Bool("allow-map-failure", false, "keep columns missing from the vocabulary")
	site := flag.String("site", "", "site details file to check the header against")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	opts := domain.Options{
		Timezone:         *timezone,
		RowBasedTimezone: *rowTZ,
		HeaderSep:        *headerSep,
		AllowMapFailure:  *allowMapFailure,
	}
	os.Exit(run(os.Stdout, os.Stderr, flag.Arg(0), *kind, *site, opts))
}

func run(stdout, stderr io.Writer, path, kindName, sitePath string, opts domain.Options) int {
	kind, ok := kinds[kindName]
	if !ok {
		fmt.Fprintf(stderr, "unknown kind %q\n", kindName)
		return 1
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid options: %v\n", err)
		return 1
	}

	hdr, err := parse(path, kind, opts)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	rep := report{
		File:             path,
		Kind:             kindName,
		HeaderLine:       hdr.HeaderPos,
		Columns:          hdr.Columns,
		DataNames:        hdr.DataNames,
		MultiSampleNames: hdr.MultiSampleNames,
		Units:            hdr.Units,
		Ignored:          hdr.Ignored,
		Info:             hdr.Info,
		Warnings:         hdr.Warnings,
	}

	code := 0
	if sitePath != "" {
		siteHdr, err := parse(sitePath, domain.SiteDetailsFile, opts)
		if err != nil {
			fmt.Fprintf(stderr, "site details: %v\n", err)
			return 1
		}
		rep.Mismatches = hdr.CheckIntegrity(siteHdr.Info)
		if len(rep.Mismatches) > 0 {
			keys := make([]string, 0, len(rep.Mismatches))
			for k := range rep.Mismatches {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(stderr, "mismatch %s: %s\n", k, rep.Mismatches[k])
			}
			code = 2
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		fmt.Fprintf(stderr, "encode report: %v\n", err)
		return 1
	}
	return code
}

func parse(path string, kind domain.FileKind, opts domain.Options) (*domain.Header, error) {
	lines, err := domain.ReadLines(path)
	if err != nil {
		return nil, domain.WithFile(err, path)
	}
	hdr, err := domain.ParseHeader(lines, kind, opts, domain.DefaultVocabulary())
	if err != nil {
		return nil, domain.WithFile(err, path)
	}
	return hdr, nil
}
