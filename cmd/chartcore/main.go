// Command chartcore is the CLI wrapper around the chart package: it walks
// a folder tree for chart folders (or a single .sng package), runs each
// through Parse -> HashAllTracks -> FindIssues, and prints a per-chart
// report, in the shape of the teacher's own main.go.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chartcore/chartcore/chart"
	"github.com/chartcore/chartcore/internal/folderscan"
	"github.com/chartcore/chartcore/internal/ini"
	"github.com/chartcore/chartcore/internal/sngpkg"
	"github.com/chartcore/chartcore/rawchart"
)

func main() {
	jsonOutput := flag.Bool("json", false, "Output the report as JSON")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <folder-or-file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	root := flag.Arg(0)
	entries, err := discover(root)
	if err != nil {
		log.Printf("Error scanning %s: %v\n", root, err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		log.Printf("No chart folders found under %s\n", root)
		os.Exit(1)
	}

	var reports []report
	for _, e := range entries {
		r, err := process(e)
		if err != nil {
			log.Printf("Error processing %s: %v\n", e.Dir, err)
			continue
		}
		reports = append(reports, r)
	}

	if *jsonOutput {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			log.Printf("Error marshaling report to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}
	for _, r := range reports {
		printReport(r)
	}
}

// discover treats root as either a single file/folder or a directory tree
// to scan, matching folderscan's notion of a chart folder.
func discover(root string) ([]folderscan.Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(root), ".sng") {
			return []folderscan.Entry{{Dir: filepath.Dir(root), SngPath: root}}, nil
		}
		return nil, fmt.Errorf("%s is not a chart folder or .sng file", root)
	}
	return folderscan.Scan(root)
}

// report is one chart folder's analysis, the unit cmd/chartcore prints or
// marshals to JSON.
type report struct {
	Dir         string            `json:"dir"`
	Name        string            `json:"name,omitempty"`
	Artist      string            `json:"artist,omitempty"`
	Charter     string            `json:"charter,omitempty"`
	Tracks      []trackReport     `json:"tracks"`
	Issues      []issueReport     `json:"issues"`
	TrackHashes map[string]string `json:"trackHashes"`
}

type trackReport struct {
	Instrument string `json:"instrument"`
	Difficulty string `json:"difficulty"`
	NoteGroups int    `json:"noteGroups"`
	Hash       string `json:"hash"`
}

type issueReport struct {
	Kind       string  `json:"kind"`
	Instrument string  `json:"instrument,omitempty"`
	Difficulty string  `json:"difficulty,omitempty"`
	MsTime     float64 `json:"msTime"`
	Message    string  `json:"message"`
}

func process(e folderscan.Entry) (report, error) {
	chartBytes, iniBytes, format, err := loadEntry(e)
	if err != nil {
		return report{}, err
	}

	song := ini.Parse(iniBytes)
	parsed, err := chart.Parse(chartBytes, format, song.Modifiers)
	if err != nil {
		return report{}, fmt.Errorf("parse chart: %w", err)
	}

	hashes := chart.HashAllTracks(parsed)
	chartIssues := chart.FindIssues(parsed, song.Modifiers.SongLength, hashes)

	r := report{
		Dir:         e.Dir,
		Name:        song.Name,
		Artist:      song.Artist,
		Charter:     song.Charter,
		TrackHashes: make(map[string]string, len(hashes)),
	}

	ids := make([]rawchart.TrackID, 0, len(parsed.Tracks))
	for id := range parsed.Tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Instrument != ids[j].Instrument {
			return ids[i].Instrument < ids[j].Instrument
		}
		return ids[i].Difficulty < ids[j].Difficulty
	})
	for _, id := range ids {
		tr := parsed.Tracks[id]
		hash := hashes[id]
		r.Tracks = append(r.Tracks, trackReport{
			Instrument: id.Instrument.String(),
			Difficulty: id.Difficulty.String(),
			NoteGroups: len(tr.NoteEventGroups),
			Hash:       hash,
		})
		r.TrackHashes[id.Instrument.String()+"/"+id.Difficulty.String()] = hash
	}

	for _, issue := range chartIssues {
		ir := issueReport{Kind: issue.Kind.String(), MsTime: issue.MsTime, Message: issue.Message}
		if issue.Instrument != nil {
			ir.Instrument = issue.Instrument.String()
		}
		if issue.Difficulty != nil {
			ir.Difficulty = issue.Difficulty.String()
		}
		r.Issues = append(r.Issues, ir)
	}

	return r, nil
}

// loadEntry resolves a folderscan.Entry into raw chart bytes, raw song.ini
// bytes, and the format to pass to chart.Parse, pulling from an .sng
// archive when the entry is a loose package instead of a folder.
func loadEntry(e folderscan.Entry) ([]byte, []byte, rawchart.Format, error) {
	if e.SngPath != "" {
		archive, err := sngpkg.Open(e.SngPath)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("open sng package: %w", err)
		}
		defer archive.Close()

		iniBytes, _ := archive.ReadFile("song.ini")

		if data, err := archive.ReadFile("notes.chart"); err == nil {
			return data, iniBytes, rawchart.FormatChart, nil
		}
		data, err := archive.ReadFile("notes.mid")
		if err != nil {
			return nil, nil, 0, fmt.Errorf("sng package has no notes.chart or notes.mid: %w", err)
		}
		return data, iniBytes, rawchart.FormatMIDI, nil
	}

	chartBytes, err := os.ReadFile(e.ChartPath)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read %s: %w", e.ChartPath, err)
	}
	var iniBytes []byte
	if e.IniPath != "" {
		iniBytes, _ = os.ReadFile(e.IniPath)
	}

	format := rawchart.FormatChart
	if strings.EqualFold(filepath.Ext(e.ChartPath), ".mid") {
		format = rawchart.FormatMIDI
	}
	return chartBytes, iniBytes, format, nil
}

func printReport(r report) {
	fmt.Printf("Chart folder: %s\n", r.Dir)
	if r.Name != "" {
		fmt.Printf("Title: %s\n", r.Name)
	}
	if r.Artist != "" {
		fmt.Printf("Artist: %s\n", r.Artist)
	}
	if r.Charter != "" {
		fmt.Printf("Charter: %s\n", r.Charter)
	}
	fmt.Printf("Tracks: %d\n", len(r.Tracks))
	for _, t := range r.Tracks {
		fmt.Printf("  %s/%s: %d note groups, hash %s\n", t.Instrument, t.Difficulty, t.NoteGroups, t.Hash)
	}
	if len(r.Issues) == 0 {
		fmt.Println("No issues found.")
	} else {
		fmt.Printf("Issues: %d\n", len(r.Issues))
		for _, issue := range r.Issues {
			loc := ""
			if issue.Instrument != "" {
				loc = fmt.Sprintf(" [%s/%s]", issue.Instrument, issue.Difficulty)
			}
			fmt.Printf("  %s%s: %s\n", issue.Kind, loc, issue.Message)
		}
	}
	fmt.Println()
}
