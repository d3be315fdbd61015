package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/givxl33t/metatorrent/hasher"
	"github.com/givxl33t/metatorrent/magnet"
	"github.com/givxl33t/metatorrent/torrentfile"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

const version = "0.1.0"

// stringList collects a repeatable flag
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "metatorrent %s\n\nUsage:\n", version)
	fmt.Fprintln(os.Stderr, "  metatorrent create [flags] <path>       create a torrent for a file or directory")
	fmt.Fprintln(os.Stderr, "  metatorrent info <torrent>              show what a torrent contains")
	fmt.Fprintln(os.Stderr, "  metatorrent magnet <torrent|uri>        print a magnet link or parse one")
	fmt.Fprintln(os.Stderr, "  metatorrent verify <torrent> <path>     check content against a torrent")
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(ctx, os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "magnet":
		err = runMagnet(os.Args[2:])
	case "verify":
		err = runVerify(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		log.Fatal(err)
	}
}

func verbose(fs *flag.FlagSet) *bool {
	return fs.Bool("v", false, "log debug messages")
}

func setLevel(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	}
}

func runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	var trackers, webseeds, exclude stringList
	fs.Var(&trackers, "t", "tracker URL, comma separated URLs form one tier (repeatable)")
	fs.Var(&webseeds, "w", "web seed URL (repeatable)")
	fs.Var(&exclude, "x", "glob pattern of files to leave out (repeatable)")
	out := fs.String("o", "", "output file, <name>.torrent by default")
	name := fs.String("n", "", "torrent name, the base name of path by default")
	comment := fs.String("c", "", "comment")
	source := fs.String("s", "", "source, changes the info hash")
	private := fs.Bool("p", false, "mark the torrent private")
	pieceSize := fs.Int64("l", 0, "piece size in bytes, picked from the content size by default")
	randomize := fs.Bool("r", false, "randomize the info hash")
	workers := fs.Int("j", 0, "number of hashing goroutines")
	noDate := fs.Bool("D", false, "don't store the creation date")
	overwrite := fs.Bool("y", false, "overwrite an existing output file")
	printMagnet := fs.Bool("m", false, "print a magnet link when done")
	debug := verbose(fs)
	fs.Parse(args)
	setLevel(*debug)

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("create needs exactly one path")
	}
	path := os.ExpandEnv(fs.Arg(0))

	t := torrentfile.New()
	if err := t.SetExclude(exclude...); err != nil {
		return err
	}
	if err := t.SetPath(path); err != nil {
		return err
	}
	if *name != "" {
		t.SetName(*name)
	}
	if *pieceSize != 0 {
		if err := t.SetPieceSize(*pieceSize); err != nil {
			return err
		}
	}

	tiers := make([][]string, 0, len(trackers))
	for _, tier := range trackers {
		tiers = append(tiers, strings.Split(tier, ","))
	}
	if err := t.Trackers().Set(tiers); err != nil {
		return err
	}
	if err := t.Webseeds().Set([]string(webseeds)); err != nil {
		return err
	}

	if *comment != "" {
		t.SetComment(*comment)
	}
	if *source != "" {
		t.SetSource(*source)
	}
	if *private {
		t.SetPrivate(true)
	}
	t.SetRandomizeInfohash(*randomize)
	t.SetCreatedBy("metatorrent " + version)
	if !*noDate {
		if err := t.SetCreationDate(time.Now()); err != nil {
			return err
		}
	}

	size, _ := t.Size()
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetDescription("hashing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	opts := []hasher.Option{
		hasher.WithProgress(func(p hasher.Progress) {
			bar.Set64(p.BytesDone)
		}, 100*time.Millisecond),
	}
	if *workers > 0 {
		opts = append(opts, hasher.WithWorkers(*workers))
	}
	if err := t.Generate(ctx, opts...); err != nil {
		return err
	}
	bar.Finish()

	if *out == "" {
		torrentName, _ := t.Name()
		*out = torrentName + ".torrent"
	}
	if err := t.WriteFile(*out, *overwrite); err != nil {
		return err
	}

	infohash, _ := t.Infohash()
	log.WithFields(log.Fields{
		"file":       *out,
		"info_hash":  infohash,
		"piece_size": t.PieceSize(),
		"size":       size,
	}).Info("torrent created")

	if *printMagnet {
		m, err := t.Magnet()
		if err != nil {
			return err
		}
		fmt.Println(m)
	}
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	debug := verbose(fs)
	fs.Parse(args)
	setLevel(*debug)
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("info needs exactly one torrent file")
	}

	t, err := torrentfile.ReadFile(fs.Arg(0), true)
	if err != nil {
		return err
	}
	printTorrent(t)
	return nil
}

func printTorrent(t *torrentfile.Torrent) {
	row := func(key string, value interface{}) {
		fmt.Printf("%-14s%v\n", key, value)
	}

	if name, ok := t.Name(); ok {
		row("Name", name)
	}
	if infohash, err := t.Infohash(); err == nil {
		row("Info Hash", infohash)
	}
	if size, ok := t.Size(); ok {
		row("Size", size)
	}
	if comment, ok := t.Comment(); ok {
		row("Comment", comment)
	}
	if date, ok := t.CreationDate(); ok {
		row("Created", date.Format(time.RFC3339))
	}
	if createdBy, ok := t.CreatedBy(); ok {
		row("Created By", createdBy)
	}
	if source, ok := t.Source(); ok {
		row("Source", source)
	}
	row("Private", t.Private())
	for i, tier := range t.Trackers().Tiers() {
		row(fmt.Sprintf("Tier %d", i+1), strings.Join(tier, " "))
	}
	for _, seed := range t.Webseeds().List() {
		row("Webseed", seed)
	}
	if pieceSize := t.PieceSize(); pieceSize > 0 {
		row("Piece Size", pieceSize)
		if hashes, err := t.Hashes(); err == nil {
			row("Piece Count", len(hashes))
		}
	}
	if files, err := t.Files(); err == nil {
		for _, f := range files {
			row("File", filepath.ToSlash(f))
		}
	}
}

func runMagnet(args []string) error {
	fs := flag.NewFlagSet("magnet", flag.ExitOnError)
	debug := verbose(fs)
	fs.Parse(args)
	setLevel(*debug)
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("magnet needs a torrent file or a magnet link")
	}

	arg := fs.Arg(0)
	if strings.HasPrefix(arg, "magnet:") {
		m, err := magnet.Parse(arg)
		if err != nil {
			return err
		}
		t, err := torrentfile.FromMagnet(m)
		if err != nil {
			return err
		}
		printTorrent(t)
		return nil
	}

	t, err := torrentfile.ReadFile(arg, true)
	if err != nil {
		return err
	}
	m, err := t.Magnet()
	if err != nil {
		return err
	}
	fmt.Println(m)
	return nil
}

func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	workers := fs.Int("j", 0, "number of hashing goroutines")
	debug := verbose(fs)
	fs.Parse(args)
	setLevel(*debug)
	if fs.NArg() != 2 {
		fs.Usage()
		return fmt.Errorf("verify needs a torrent file and a path")
	}

	t, err := torrentfile.ReadFile(fs.Arg(0), true)
	if err != nil {
		return err
	}
	path := os.ExpandEnv(fs.Arg(1))
	if err := t.VerifyFilesize(path); err != nil {
		return err
	}

	size, _ := t.Size()
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetDescription("verifying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	opts := []hasher.Option{
		hasher.WithProgress(func(p hasher.Progress) {
			bar.Set64(p.BytesDone)
		}, 100*time.Millisecond),
	}
	if *workers > 0 {
		opts = append(opts, hasher.WithWorkers(*workers))
	}

	good, err := t.Verify(ctx, path, opts...)
	bar.Finish()
	if err != nil {
		return err
	}
	hashes, _ := t.Hashes()
	log.WithField("pieces", good.Count(len(hashes))).Info("content is complete")
	return nil
}
