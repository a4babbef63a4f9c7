package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/fluxlog/internal/calib"
	"github.com/banshee-data/fluxlog/internal/cells"
	"github.com/banshee-data/fluxlog/internal/fluxstore"
	"github.com/banshee-data/fluxlog/internal/pipeline"
	"github.com/banshee-data/fluxlog/internal/xgen"
)

// stdin is shared by every prompt so buffered input is never split
// between readers.
var stdin = bufio.NewReader(os.Stdin)

// runAdd ingests the given flux data files and merges their corrected
// readings into the store.
func runAdd(p *pipeline.Pipeline, files []string) error {
	result, err := p.Ingest(files)
	if err != nil {
		return err
	}
	if len(result.Readings) == 0 {
		log.Printf("no corrected readings produced, nothing to store")
		return nil
	}

	if err := p.ResolveParams(result.Readings); err != nil {
		return err
	}

	if *dryRun {
		log.Printf("dry run: skipping store update for %d readings", len(result.Readings))
		return nil
	}
	return p.Save(result.Readings, *storeDir, confirmOverwrite)
}

// runCalibrate runs a group-III flux calibration over files that share a
// single measurement timestamp, then stores all readings.
func runCalibrate(p *pipeline.Pipeline, files []string) error {
	if len(files) == 0 {
		log.Printf("no files selected, nothing to do")
		return nil
	}

	files = append([]string(nil), files...)
	sort.Strings(files)

	_, ts0, err := xgen.ParseFilename(files[0])
	if err != nil {
		return err
	}
	for _, f := range files[1:] {
		_, ts, err := xgen.ParseFilename(f)
		if err != nil {
			return err
		}
		if !ts.Equal(ts0) {
			return fmt.Errorf(
				"selected flux files do not all have the same timestamp; automated calibration requires a single measurement event")
		}
	}

	result, err := p.Ingest(files)
	if err != nil {
		return err
	}
	if len(result.Readings) == 0 {
		log.Printf("no corrected readings produced, nothing to calibrate")
		return nil
	}
	if err := p.ResolveParams(result.Readings); err != nil {
		return err
	}

	grouped := fluxstore.Group(result.Readings)
	var g3 []*cells.Cell
	for _, name := range grouped.CellNames() {
		c, _ := grouped.Cell(name)
		if calib.IsGroupIII(c) {
			g3 = append(g3, c)
		}
	}

	var growth string
	var summary strings.Builder
	if len(g3) > 0 {
		var targets map[string]float64
		growth, targets, err = promptCalibration(stdin, os.Stdout, g3, ts0)
		if err != nil {
			return err
		}

		for _, c := range g3 {
			message, short, err := calib.Report(calib.Input{
				Growth:    growth,
				TargetMIG: targets[c.Name],
				Cell:      c,
				Readings:  grouped.CellReadings(c.Name, true),
			})
			if err != nil {
				return err
			}
			fmt.Println(message)
			if !*dryRun {
				path, err := calib.WriteReport(*calibDir, c, growth, message, p.FS)
				if err != nil {
					return err
				}
				log.Printf("calibration report saved to %s", path)
			}
			summary.WriteString("\n" + short + "\n")
		}
	}

	if !*dryRun {
		if err := p.Save(result.Readings, *storeDir, confirmOverwrite); err != nil {
			return err
		}
	}

	if summary.Len() > 0 {
		fmt.Println("\n---- Summary ----")
		fmt.Println(summary.String())
		if !*dryRun {
			path, err := calib.WriteSummary(*calibDir, growth, summary.String(), p.FS)
			if err != nil {
				return err
			}
			log.Printf("summary saved to %s", path)
		}
	}
	return nil
}

// confirmOverwrite asks whether conflicting store batches may be
// replaced; -yes answers without prompting.
func confirmOverwrite(description string) bool {
	if *assumeYes {
		return true
	}
	return promptYesNo(stdin, os.Stdout,
		fmt.Sprintf("%s.\nOverwrite with the newly computed readings?", description))
}

// stdinParamResolver prompts for still-unset cell parameters, offering
// the cell's default values. A blank answer accepts the default, or
// leaves the parameter unset when there is none. It reads from the
// given buffered reader, which must be the same one used by the other
// prompts so piped input is not buffered away between them.
func stdinParamResolver(reader *bufio.Reader, out io.Writer) pipeline.ParamResolver {
	return func(cell *cells.Cell, timestamp time.Time, params []string, n int) (map[string][]*float64, error) {
		fmt.Fprintf(out, "\nFound %d reading(s) for %s (cell %d) with timestamp %s.\n",
			n, cell.Name, cell.Port, timestamp.Format(time.DateTime))
		fmt.Fprintf(out, "Enter a single value (used for all readings) or a comma-separated list; leave unknown values blank.\n")

		vals := make(map[string][]*float64, len(params))
		for _, par := range params {
			def := ""
			if d := cell.Defaults[par]; d != nil {
				def = fmt.Sprintf(" [%g]", *d)
			}
			for {
				fmt.Fprintf(out, "%s %s%s: ", cell.Name, par, def)
				line, err := reader.ReadString('\n')
				line = strings.TrimSpace(line)
				if line == "" {
					if d := cell.Defaults[par]; d != nil {
						v := *d
						vals[par] = []*float64{&v}
					}
				} else {
					list, perr := parseValueList(line, n)
					if perr != nil {
						fmt.Fprintf(out, "  %v; please try again\n", perr)
						if err == nil {
							continue
						}
					} else {
						vals[par] = list
					}
				}
				if err != nil {
					// Input exhausted: return what we have; the
					// remaining parameters stay unset.
					return vals, nil
				}
				break
			}
		}
		return vals, nil
	}
}

// parseValueList parses a comma-separated value list for n readings.
// Blank entries stay unset; a single value broadcasts to all readings.
func parseValueList(s string, n int) ([]*float64, error) {
	parts := strings.Split(s, ",")
	out := make([]*float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			out = append(out, nil)
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse value %q", part)
		}
		out = append(out, &v)
	}
	if len(out) != 1 && len(out) != n {
		return nil, fmt.Errorf("number of values given (%d) is incompatible with number of readings (%d)",
			len(out), n)
	}
	return out, nil
}

func promptYesNo(in *bufio.Reader, out io.Writer, message string) bool {
	for {
		fmt.Fprintf(out, "%s [y/n]: ", message)
		line, err := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		if err != nil {
			return false
		}
	}
}

// promptCalibration asks for the growth number and per-cell target MIG
// currents. All answers are required.
func promptCalibration(in *bufio.Reader, out io.Writer, cs []*cells.Cell, timestamp time.Time) (string, map[string]float64, error) {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.Name
	}
	fmt.Fprintf(out, "\nCalculating flux calibration for group III cell(s) %s.\n", strings.Join(names, ", "))
	fmt.Fprintf(out, "Timestamp for flux measurements: %s\n\n", timestamp.Format(time.DateTime))

	growth, err := promptRequired(in, out, "Growth number")
	if err != nil {
		return "", nil, err
	}

	targets := make(map[string]float64, len(cs))
	for _, c := range cs {
		for {
			answer, err := promptRequired(in, out, fmt.Sprintf("%s target MIG (nA)", c.Name))
			if err != nil {
				return "", nil, err
			}
			v, perr := strconv.ParseFloat(answer, 64)
			if perr != nil {
				fmt.Fprintf(out, "  could not parse %q; please try again\n", answer)
				continue
			}
			targets[c.Name] = v
			break
		}
	}
	return growth, targets, nil
}

func promptRequired(in *bufio.Reader, out io.Writer, label string) (string, error) {
	for {
		fmt.Fprintf(out, "%s: ", label)
		line, err := in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to get value for %s", label)
		}
		fmt.Fprintf(out, "  value cannot be empty\n")
	}
}
