// Command smoke-check verifies a blue/green pair sharing one tasks file: it
// registers a task through the Blue deployment and waits until the Green
// deployment lists it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"bluegreen-api/client"
)

func main() {
	blueURL := flag.String("blue", envOr("BLUE_URL", "http://localhost:3001"), "base URL of the Blue deployment")
	greenURL := flag.String("green", envOr("GREEN_URL", "http://localhost:3002"), "base URL of the Green deployment")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	interval := flag.Duration("interval", 200*time.Millisecond, "initial poll interval")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client.New(*blueURL), client.New(*greenURL), *interval); err != nil {
		log.WithError(err).Fatal("smoke check failed")
	}
	log.Info("smoke check passed")
}

func run(ctx context.Context, blue, green *client.Client, interval time.Duration) error {
	bh, err := blue.Health(ctx)
	if err != nil {
		return fmt.Errorf("blue health: %w", err)
	}
	gh, err := green.Health(ctx)
	if err != nil {
		return fmt.Errorf("green health: %w", err)
	}
	log.WithFields(log.Fields{"blue": bh.Version, "green": gh.Version}).Info("deployments reachable")
	if !bh.CanCreate {
		return fmt.Errorf("blue deployment %q cannot register tasks", bh.Version)
	}
	if !gh.CanList {
		return fmt.Errorf("green deployment %q cannot list tasks", gh.Version)
	}

	title := fmt.Sprintf("smoke check %s", time.Now().UTC().Format(time.RFC3339))
	task, err := blue.CreateTask(ctx, title, "created by smoke-check")
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	log.WithField("id", task.ID).Info("task registered on blue")

	start := time.Now()
	if _, err := green.WaitForTask(ctx, task.ID, interval); err != nil {
		return err
	}
	log.WithFields(log.Fields{"id": task.ID, "after": time.Since(start)}).Info("task visible on green")
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
