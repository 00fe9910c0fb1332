package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okian/sportsday/internal/loadsim"
	"github.com/okian/sportsday/pkg/logger"
)

// Default configuration constants.
const (
	defaultUpdates    = 500
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultMaxScore   = 10
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:8080", "Base URL of the server")
		email    = flag.String("email", "", "Account to sign in with (needs scoring rights)")
		secret   = flag.String("secret", os.Getenv("SPORTSDAY_LOGIN_SECRET"), "Shared login secret")
		updates  = flag.Int("updates", defaultUpdates, "Number of score updates to send")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		maxScore = flag.Int64("max-score", defaultMaxScore, "Largest score a form can get")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for the update generator")
		watch    = flag.Bool("watch", true, "Count websocket notifications during the run")
		verbose  = flag.Bool("verbose", false, "Log every update")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: score-sim -email scorer@example.org [flags]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Sends random score updates to a running sportsday server and checks the scoreboard totals.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *email == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadsim.Config{
		BaseURL:  *baseURL,
		Email:    *email,
		Secret:   *secret,
		Updates:  *updates,
		Workers:  *workers,
		MaxScore: *maxScore,
		Timeout:  *timeout,
		Seed:     *seed,
		Watch:    *watch,
		Verbose:  *verbose,
	}

	if _, err := loadsim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
