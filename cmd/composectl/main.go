// composectl is the command-line companion to composed: it replays
// keystroke scripts through the engine, runs an interactive terminal
// host and maintains the dictionary and configuration.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"composed/internal/composer"
	"composed/internal/config"
	"composed/internal/dict"
	"composed/internal/ime"
	"composed/internal/logging"
	"composed/internal/metrics"
	"composed/internal/tui"
)

var (
	configPath = flag.String("config", "", "path to config file")
	verbose    = flag.Bool("v", false, "log engine events to stderr")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	args := flag.Args()[1:]
	var err error
	switch cmd := flag.Arg(0); cmd {
	case "replay":
		err = cmdReplay(args)
	case "tui":
		err = cmdTUI(args)
	case "modes":
		err = cmdModes()
	case "dict":
		err = cmdDict(args)
	case "config":
		err = cmdConfig(args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `composectl - composition engine utility

Usage: composectl [options] <command> [args]

Commands:
  replay [-metrics] <script|->   Run a keystroke script and print the transcript
  tui [text]                     Interactive terminal host
  modes                          List the configured input modes
  dict top [N]                   Most used words in the user store
  dict prune <min-count>         Forget words used fewer than min-count times
  dict lookup <prefix>           Show candidates for a prefix
  config print                   Print the effective configuration
  config init [path]             Write the default configuration
  config validate                Validate the configuration file
  help                           Show this help message

Options:
  -config <path>  Path to config file
  -v              Log engine events to stderr`)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !*verbose {
		return logging.NewWithWriter(io.Discard, &logging.Config{Level: logging.LevelError, Component: "composectl"}), nil
	}
	lc, err := cfg.Logging.LoggerConfig("composectl")
	if err != nil {
		return nil, err
	}
	lc.Level = logging.LevelDebug
	lc.Output = "stderr"
	return logging.New(lc)
}

// session holds what the engine-driving commands share.
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	words    *dict.Dictionary
	store    *dict.UserStore
	composer *composer.Switch
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	words, store, err := dict.Open(dict.Setup{
		WordList:      cfg.Dictionary.WordList,
		UserDB:        cfg.Dictionary.UserDB,
		FuzzyDistance: cfg.Dictionary.FuzzyDistance,
		Logger:        logger.Logger,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}
	var rec composer.Recorder
	if store != nil {
		rec = store
	}

	sw, err := composer.FromConfig(cfg, words, rec, logger.Logger)
	if err != nil {
		if store != nil {
			store.Close()
		}
		logger.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, words: words, store: store, composer: sw}, nil
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
	s.logger.Close()
}

func (s *session) observer() ime.Observer {
	return ime.NewLogObserver(s.logger.Logger)
}

func cmdReplay(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	showMetrics := fs.Bool("metrics", false, "print protocol counters after the transcript")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: composectl replay [-metrics] <script|->")
	}

	var in io.Reader = os.Stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	steps, err := parseScript(in)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	reg := metrics.NewRegistry("composed", "")
	obs := ime.Observers{s.observer(), ime.NewMetricsObserver(reg)}
	if _, err := replay(steps, s.composer, os.Stdout, ime.WithObserver(obs)); err != nil {
		return err
	}
	if *showMetrics {
		fmt.Println()
		return reg.WritePrometheus(os.Stdout)
	}
	return nil
}

func cmdTUI(args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	initial := ""
	if len(args) > 0 {
		initial = args[0]
	}
	m := tui.New(s.composer, tui.Options{
		Modes:    s.composer.Modes(),
		Initial:  initial,
		Observer: s.observer(),
		Logger:   s.logger.Logger,
	})
	text, err := tui.Run(m)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func cmdModes() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for _, m := range cfg.Engine.Modes {
		marker := " "
		if m == cfg.Engine.DefaultMode {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, m)
	}
	return nil
}

func cmdDict(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: composectl dict top|prune|lookup ...")
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	switch args[0] {
	case "lookup":
		if len(args) != 2 {
			return fmt.Errorf("usage: composectl dict lookup <prefix>")
		}
		for i, w := range s.words.Lookup(args[1], s.cfg.Dictionary.MaxCandidates) {
			fmt.Printf("%d %s\n", i+1, w)
		}
		return nil
	}

	if s.store == nil {
		return fmt.Errorf("no user database configured")
	}
	switch args[0] {
	case "top":
		limit := 20
		if len(args) > 1 {
			if limit, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid count %q", args[1])
			}
		}
		entries, err := s.store.Top(limit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%6d  %-20s %s\n", e.Count, e.Word, e.LastUsed.Format("2006-01-02 15:04"))
		}
	case "prune":
		if len(args) != 2 {
			return fmt.Errorf("usage: composectl dict prune <min-count>")
		}
		minCount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid count %q", args[1])
		}
		n, err := s.store.Prune(minCount)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d words\n", n)
	default:
		return fmt.Errorf("unknown dict command: %s", args[0])
	}
	return nil
}

func cmdConfig(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: composectl config print|init|validate")
	}
	switch args[0] {
	case "print":
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		return cfg.Encode(os.Stdout, "toml")
	case "init":
		path := *configPath
		if len(args) > 1 {
			path = args[1]
		}
		if path == "" {
			path = config.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		fmt.Println("Wrote", path)
	case "validate":
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		for _, w := range cfg.Warnings() {
			fmt.Printf("warning: %s\n", w.Error())
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("Configuration is valid")
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
	return nil
}
