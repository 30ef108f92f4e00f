// Command landmark-replay runs recorded landmark frames through the gesture engine
// and prints every label change, completed tap sequence and the final counters.
//
// Recordings are JSON lines, one detector.Frame per line:
//
//	landmark-replay -kinds open-close,rotation session.jsonl
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/detector"
	"github.com/ayusman/handrehab/internal/engine"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/store"
	"github.com/cheggaaa/pb/v3"
)

const barTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . }} {{etime . "%s elapsed"}}`

func main() {
	kinds := flag.String("kinds", string(gesture.KindOpenClose), "comma-separated gesture kinds")
	dbPath := flag.String("db", "", "read tunables from this database instead of the defaults")
	asJSON := flag.Bool("json", false, "print the final snapshot as JSON")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	flag.Parse()

	cfg, err := engineConfig(*kinds, *dbPath)
	if err != nil {
		log.Fatal(err)
	}

	in := io.Reader(os.Stdin)
	name := "stdin"
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("Failed to open recording: %v", err)
		}
		defer f.Close()
		in, name = f, flag.Arg(0)
	}

	frames, err := detector.ReadFrames(in)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", name, err)
	}

	var bar *pb.ProgressBar
	if !*quiet {
		bar = pb.ProgressBarTemplate(barTemplate).New(len(frames))
		bar.SetWriter(os.Stderr)
		bar.Set("prefix", name)
		bar.Start()
	}

	final, err := replay(frames, cfg, os.Stdout, bar)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		log.Fatal(err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(final)
		return
	}
	printCounters(os.Stdout, final)
}

// engineConfig builds the engine config from the kinds flag and, when dbPath is set,
// the stored settings.
func engineConfig(kinds, dbPath string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.Kinds = nil
	for _, name := range strings.Split(kinds, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k, err := gesture.ParseKind(name)
		if err != nil {
			return cfg, err
		}
		cfg.Kinds = append(cfg.Kinds, k)
	}

	if dbPath == "" {
		return cfg, nil
	}
	st, err := store.New(dbPath)
	if err != nil {
		return cfg, fmt.Errorf("open settings: %w", err)
	}
	defer st.Close()

	settings, err := app.LoadSettings(st)
	if err != nil {
		return cfg, err
	}
	cfg.Gesture = settings.GestureConfig()
	cfg.GraceFrames = settings.GraceFrames
	return cfg, nil
}

// replay feeds frames to a fresh engine and writes label changes and completed
// sequences to w. bar may be nil.
func replay(frames []detector.Frame, cfg engine.Config, w io.Writer, bar *pb.ProgressBar) (engine.Snapshot, error) {
	eng, err := engine.New(cfg)
	if err != nil {
		return engine.Snapshot{}, err
	}

	labels := make(map[string]string)
	var last engine.Snapshot
	for _, f := range frames {
		snap, err := eng.Process(f)
		if bar != nil {
			bar.Increment()
		}
		if err != nil {
			// Skipping keeps a recording with a duplicated frame usable.
			fmt.Fprintf(w, "seq %d: skipped: %v\n", f.Seq, err)
			continue
		}
		last = snap

		for _, ev := range snap.Events {
			key := fmt.Sprintf("%s#%d", ev.Kind, ev.Subject)
			if prev, ok := labels[key]; !ok || prev != ev.Label {
				fmt.Fprintf(w, "seq %d: %s: %s\n", f.Seq, key, ev.Label)
				labels[key] = ev.Label
			}
			if len(ev.Sequence) > 0 {
				parts := make([]string, len(ev.Sequence))
				for i, tap := range ev.Sequence {
					parts[i] = fmt.Sprintf("%s %.2fs", tap.Target, tap.Seconds)
				}
				fmt.Fprintf(w, "seq %d: %s: sequence completed: %s\n", f.Seq, key, strings.Join(parts, ", "))
			}
		}
	}
	return last, nil
}

func printCounters(w io.Writer, snap engine.Snapshot) {
	fmt.Fprintln(w, "Final counters:")
	for _, ev := range snap.Events {
		names := make([]string, 0, len(ev.Counters))
		for name := range ev.Counters {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s#%d %s: %d\n", ev.Kind, ev.Subject, name, ev.Counters[name])
		}
	}
}
