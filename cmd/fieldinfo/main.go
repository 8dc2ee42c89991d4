// Wind slice inspector - decodes uv_YYYYMMDDHH images and prints summary stats.
//
// Usage: go run ./cmd/fieldinfo -level 250 data/uv_2017080112.png
//
//	go run ./cmd/fieldinfo -csv summary.csv data/250hpa
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/windglobe/field"
)

func main() {
	level := flag.Int("level", 500, "Pressure level in hPa, selects the channel range")
	rangeMPS := flag.Float64("range", 0, "Channel range in m/s (0 = per level)")
	csvPath := flag.String("csv", "", "Also write the summaries to this CSV file")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: fieldinfo [flags] <slice.png | dir>...")
	}

	r := *rangeMPS
	if r == 0 {
		r = field.RangeForLevel(*level)
	}

	var summaries []Summary
	for _, path := range flag.Args() {
		slices, err := load(path, r)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		for _, f := range slices {
			summaries = append(summaries, Summarize(f))
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "time\tsize\tmean\tp50\tp90\tmax\ttropics\tmid\tpolar\tsaturated\t")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%dx%d\t%.1f\t%.1f\t%.1f\t%.1f\t%+.1f\t%+.1f\t%+.1f\t%.2f%%\t\n",
			s.Time, s.Width, s.Height,
			s.SpeedMean, s.SpeedP50, s.SpeedP90, s.SpeedMax,
			s.ZonalTropics, s.ZonalMid, s.ZonalPolar, s.Saturated*100)
	}
	tw.Flush()

	if *csvPath != "" {
		out, err := os.Create(*csvPath)
		if err != nil {
			log.Fatalf("creating csv: %v", err)
		}
		defer out.Close()
		if err := gocsv.Marshal(summaries, out); err != nil {
			log.Fatalf("writing csv: %v", err)
		}
	}
}

// load returns the slices of a single image or a directory of slices.
func load(path string, rangeMPS float64) ([]*field.Field, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		f, err := field.LoadFile(path, rangeMPS)
		if err != nil {
			return nil, err
		}
		return []*field.Field{f}, nil
	}

	seq, err := field.LoadDir(path, rangeMPS)
	if err != nil {
		return nil, err
	}
	slices := make([]*field.Field, seq.Len())
	for i := range slices {
		slices[i] = seq.Slice(i)
	}
	return slices, nil
}
