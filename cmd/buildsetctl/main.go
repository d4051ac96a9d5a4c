// Command buildsetctl drives a buildset.BuildSet against simulated builders
// described by a YAML config, reporting progress to a terminal and
// optionally to a GitHub commit status. It is the demo/operator CLI this
// module ships, the way cmd/autobuilder is the CLI distri ships for its
// batch scheduler.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/distr1/buildset"
	"github.com/distr1/buildset/internal/simbuilder"
	"github.com/distr1/buildset/internal/trace"
	"github.com/distr1/buildset/watch"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to a YAML file describing builders and their depends_on relations")
		revision      = flag.String("revision", "", "source revision to stamp onto every request")
		branch        = flag.String("branch", "", "source branch to stamp onto every request")
		reason        = flag.String("reason", "manual run", "human-readable reason recorded on every request")
		repo          = flag.String("repo", "", "https://github.com/owner/repo to report commit status against; disabled if empty")
		accessToken   = flag.String("github_access_token", "", "oauth2 GitHub access token, required if -repo is set")
		statusContext = flag.String("status_context", "buildsetctl", "GitHub status context name")
		listen        = flag.String("listen", "", "address to serve an HTML status page on, e.g. :3718; disabled if empty")
		traceEnable   = flag.Bool("trace", false, "write a Chrome trace event file to $TMPDIR/buildset.traces")
		recordDir     = flag.String("record_dir", "", "directory to atomically record each run's outcome into, keyed by revision; disabled if empty")
	)
	flag.Parse()

	if *traceEnable {
		if err := trace.Enable("buildsetctl"); err != nil {
			log.Printf("trace.Enable: %v", err)
		}
	}

	if *configPath == "" {
		log.Fatal("-config is required")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading %s: %v", *configPath, err)
	}
	if len(cfg.Builders) == 0 {
		log.Fatalf("%s declares no builders", *configPath)
	}

	ctx, canc := interruptibleContext()
	defer canc()

	status := buildset.NewStatus()

	names := make([]string, len(cfg.Builders))
	for i, b := range cfg.Builders {
		names[i] = b.Name
	}
	term := watch.NewTerminal(os.Stdout, names)
	status.AddWatcher(term)
	registerAtExit(func() error {
		fmt.Println()
		return nil
	})

	if *repo != "" {
		if *revision == "" {
			log.Fatal("-revision is required when -repo is set")
		}
		if *accessToken == "" {
			log.Fatal("-github_access_token is required when -repo is set")
		}
		owner, name := watch.RepoFromURL(*repo)
		if owner == "" {
			log.Fatalf("-repo %q is not a valid https://github.com/owner/repo URL", *repo)
		}
		gh := watch.NewGitHub(ctx, *accessToken, owner, name, *revision, *statusContext)
		status.AddWatcher(gh)
	}

	builders := make(map[string]buildset.Builder, len(cfg.Builders))
	for _, b := range cfg.Builders {
		sb := simbuilder.New(ctx, b.Name, b.Workers)
		if b.Fail {
			sb.FailNames = map[string]bool{b.Name: true}
		}
		builders[b.Name] = sb
	}

	source := buildset.SourceStamp{Branch: *branch, Revision: *revision}
	bs := buildset.NewBuildSet(source, *reason, nil, status, nil)

	if *listen != "" {
		http.HandleFunc("/status", statusPageHandler(source, *reason, status))
		go func() {
			if err := http.ListenAndServe(*listen, nil); err != nil {
				log.Println(err)
			}
		}()
		log.Printf("status page listening on %s", *listen)
	}

	if cfg.ordered() {
		if err := bs.StartOrdered(builders, cfg.dependencyMap()); err != nil {
			log.Fatalf("StartOrdered: %v", err)
		}
	} else {
		if err := bs.StartSimultaneous(builders); err != nil {
			log.Fatalf("StartSimultaneous: %v", err)
		}
	}

	select {
	case result := <-bs.WaitUntilFinished():
		log.Printf("build set finished: %s", result)
		if *recordDir != "" {
			if err := recordResult(*recordDir, source, result); err != nil {
				log.Printf("recordResult: %v", err)
			}
		}
		if err := runAtExit(); err != nil {
			log.Printf("atexit: %v", err)
		}
		if result == buildset.FAILURE || result == buildset.EXCEPTION {
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Printf("interrupted before the build set finished")
		os.Exit(1)
	case <-time.After(10 * time.Minute):
		log.Fatal("timed out waiting for the build set to finish")
	}
}
