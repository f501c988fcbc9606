package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/audioprints/internal/config"
	"github.com/himanishpuri/audioprints/pkg/audioprints"
	"github.com/himanishpuri/audioprints/pkg/logger"
	"github.com/himanishpuri/audioprints/pkg/models"
	"github.com/himanishpuri/audioprints/pkg/utils"
)

func handleAdd(ctx context.Context, cfg config.Config, args []string) {
	log := logger.GetLogger()

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	name := addCmd.String("name", "", "Track name (default: file name without extension)")
	positional := splitArgs(addCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: audioprints add <file.wav> [-name <name>]")
		os.Exit(1)
	}
	audioPath := positional[0]

	svc := createService(cfg)
	defer svc.Close()

	fmt.Println("🎵 Processing audio file...")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	trackID, err := svc.AddTrack(ctx, audioPath, *name)
	if errors.Is(err, audioprints.ErrTrackExists) {
		fmt.Printf("\n⚠️  Track already indexed (ID: %s)\n", trackID)
		return
	}
	if err != nil {
		fail("Failed to add track", err)
	}

	track, err := svc.GetTrack(trackID)
	if err != nil {
		fail("Failed to read back track", err)
	}

	fmt.Println("\n✅ Successfully added track to database!")
	printTrack(*track)
	log.Infof("Successfully added track ID=%s", trackID)
}

func handleIndex(ctx context.Context, cfg config.Config, args []string) {
	log := logger.GetLogger()

	if len(args) == 0 {
		fmt.Println("Usage: audioprints index <file-or-dir>...")
		os.Exit(1)
	}

	files, err := utils.CollectWavFiles(args)
	if err != nil {
		fail("Failed to collect files", err)
	}
	if len(files) == 0 {
		fmt.Println("📭 No WAV files found")
		return
	}

	svc := createService(cfg)
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		progress func(audioprints.IndexResult)
		p        *mpb.Progress
	)
	if isTerminal() {
		// keep the bar readable
		log.SetLevel(logger.WARN)

		p = mpb.New(mpb.WithWidth(64))
		bar := p.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Indexing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		progress = func(audioprints.IndexResult) { bar.Increment() }
	} else {
		progress = func(res audioprints.IndexResult) {
			log.WithField("file", res.Path).Infof("indexed (%d fingerprints, skipped=%t, err=%v)", res.Fingerprints, res.Skipped, res.Err)
		}
	}

	start := time.Now()
	results := svc.IndexFiles(ctx, files, progress)
	if p != nil {
		p.Wait()
	}

	var added, skipped, fingerprints int
	var failed []audioprints.IndexResult
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed = append(failed, res)
		case res.Skipped:
			skipped++
		default:
			added++
			fingerprints += res.Fingerprints
		}
	}

	fmt.Printf("\n✅ Indexed %d file(s) in %s\n", len(files), time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Added:        %d\n", added)
	fmt.Printf("   Skipped:      %d (already indexed)\n", skipped)
	fmt.Printf("   Fingerprints: %s\n", humanize.Comma(int64(fingerprints)))
	if len(failed) > 0 {
		fmt.Printf("\n❌ %d file(s) failed:\n", len(failed))
		for _, res := range failed {
			fmt.Printf("   %s: %v\n", res.Path, res.Err)
		}
		os.Exit(1)
	}
}

func handleWatch(ctx context.Context, cfg config.Config, args []string) {
	watchCmd := flag.NewFlagSet("watch", flag.ExitOnError)
	settle := watchCmd.Duration("settle", time.Second, "Time a file must stay unchanged before indexing")
	positional := splitArgs(watchCmd, args)

	if len(positional) != 1 {
		fmt.Println("Usage: audioprints watch <dir> [-settle <duration>]")
		os.Exit(1)
	}
	dir := positional[0]

	svc := createService(cfg, audioprints.WithWatchSettle(*settle))
	defer svc.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", dir)
	err := svc.Watch(ctx, dir, func(res audioprints.IndexResult) {
		switch {
		case res.Err != nil:
			fmt.Printf("❌ %s: %v\n", res.Path, res.Err)
		case res.Skipped:
			fmt.Printf("⏭️  %s already indexed\n", res.Path)
		default:
			fmt.Printf("✅ %s -> %s (%s fingerprints)\n", res.Path, res.TrackID, humanize.Comma(int64(res.Fingerprints)))
		}
	})
	if err != nil {
		fail("Watch failed", err)
	}
}

func handleLookup(ctx context.Context, cfg config.Config, args []string) {
	log := logger.GetLogger()

	if len(args) != 1 {
		fmt.Println("Usage: audioprints lookup <file.wav>")
		os.Exit(1)
	}
	audioPath := args[0]
	log.Infof("Looking up audio file: %s", audioPath)

	svc := createService(cfg)
	defer svc.Close()

	fmt.Println("🔍 Analyzing audio file...")
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	hits, err := svc.Lookup(ctx, audioPath)
	if err != nil {
		fail("Lookup failed", err)
	}

	if len(hits) == 0 {
		fmt.Println("\n❌ No shared hashes with any stored track")
		return
	}

	fmt.Printf("\n✅ %d track(s) share hashes with the query:\n\n", len(hits))
	for _, hit := range hits {
		fmt.Printf("   %-40s %8s hits  (ID: %s)\n", hit.TrackName, humanize.Comma(int64(hit.Hits)), hit.TrackID)
	}
}

func handleHash(cfg config.Config, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: audioprints hash <hash>")
		os.Exit(1)
	}

	svc := createService(cfg)
	defer svc.Close()

	postings, err := svc.HashPostings(args[0])
	if err != nil {
		fail("Hash lookup failed", err)
	}
	if len(postings) == 0 {
		fmt.Println("📭 Hash not found")
		return
	}

	fmt.Printf("📍 %d posting(s):\n", len(postings))
	for _, p := range postings {
		fmt.Printf("   track %s at frame %d\n", p.TrackID, p.AnchorTime)
	}
}

func handleSearch(cfg config.Config, args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: audioprints search <query>")
		os.Exit(1)
	}

	svc := createService(cfg)
	defer svc.Close()

	tracks, err := svc.SearchTracks(args[0])
	if err != nil {
		fail("Search failed", err)
	}
	printTracks(tracks)
}

func handleList(cfg config.Config) {
	log := logger.GetLogger()

	svc := createService(cfg)
	defer svc.Close()

	tracks, err := svc.ListTracks()
	if err != nil {
		fail("Failed to list tracks", err)
	}
	printTracks(tracks)
	log.Debugf("Listed %d tracks", len(tracks))
}

func handleDelete(cfg config.Config, args []string) {
	log := logger.GetLogger()

	if len(args) != 1 {
		fmt.Println("Usage: audioprints delete <track_id>")
		os.Exit(1)
	}
	trackID := args[0]

	svc := createService(cfg)
	defer svc.Close()

	// Get track info before deletion
	track, err := svc.GetTrack(trackID)
	if err != nil {
		fail("Track not found", err)
	}

	if err := svc.DeleteTrack(trackID); err != nil {
		fail("Failed to delete track", err)
	}

	fmt.Println("\n✅ Successfully deleted track:")
	printTrack(*track)
	log.Infof("Deleted track ID=%s (%q)", track.ID, track.Name)
}

func printTracks(tracks []models.Track) {
	if len(tracks) == 0 {
		fmt.Println("\n📭 No tracks found")
		return
	}

	fmt.Printf("\n📚 Found %d track(s):\n\n", len(tracks))
	for i, track := range tracks {
		fmt.Printf("%d. %s\n", i+1, track.Name)
		printTrack(track)
		fmt.Println()
	}
}

func printTrack(track models.Track) {
	fmt.Printf("   ID:           %s\n", track.ID)
	fmt.Printf("   Name:         %s\n", track.Name)
	if track.DurationMs > 0 {
		duration := track.DurationMs / 1000
		fmt.Printf("   Duration:     %d:%02d\n", duration/60, duration%60)
	}
	fmt.Printf("   Fingerprints: %s\n", humanize.Comma(int64(track.FingerprintCount)))
	if !track.CreatedAt.IsZero() {
		fmt.Printf("   Added:        %s\n", humanize.Time(track.CreatedAt))
	}
}
