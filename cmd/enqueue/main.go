package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/wilds-engine/internal/queue"
	queuePkg "github.com/jwebster45206/wilds-engine/pkg/queue"
)

func main() {
	redisURL := flag.String("redis", envOr("REDIS_URL", "redis://localhost:6379"), "Redis URL")
	seed := flag.Int64("seed", 1, "seed for a new run")
	ticks := flag.Int("ticks", 96, "ticks to simulate")
	runs := flag.Int("runs", 1, "number of new runs to enqueue, seeds counting up from -seed")
	session := flag.String("session", "", "resume this stored session instead of starting new runs")
	wait := flag.Duration("wait", 0, "wait this long for results before exiting")
	flag.Parse()

	ctx := context.Background()

	rdb, err := queue.NewClient(ctx, *redisURL)
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close()
	jobs := queue.NewJobQueue(rdb, 0, nil)

	var sessionID uuid.UUID
	if *session != "" {
		sessionID, err = uuid.Parse(*session)
		if err != nil {
			log.Fatalf("invalid session id %q: %v", *session, err)
		}
		*runs = 1
	}

	var ids []string
	for i := range *runs {
		job := &queuePkg.Job{
			SessionID: sessionID,
			Seed:      *seed + int64(i),
			Ticks:     *ticks,
		}
		if err := jobs.Enqueue(ctx, job); err != nil {
			log.Fatal(err)
		}
		ids = append(ids, job.JobID)
		fmt.Printf("Enqueued job %s (seed %d, %d ticks)\n", job.JobID, job.Seed, job.Ticks)
	}

	depth, err := jobs.Depth(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Queue depth: %d\n", depth)

	if *wait <= 0 {
		return
	}
	deadline := time.Now().Add(*wait)
	for _, id := range ids {
		for {
			res, err := jobs.Result(ctx, id)
			if errors.Is(err, queue.ErrNoResult) && time.Now().Before(deadline) {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			if err != nil {
				fmt.Printf("%s: %v\n", id, err)
				break
			}
			if res.Error != "" {
				fmt.Printf("%s: failed: %s\n", id, res.Error)
				break
			}
			fmt.Printf("%s: session %s, %d ticks, %d encounters, alive=%t, health=%.2f\n",
				id, res.SessionID, res.Ticks, res.Encounters, res.Alive, res.Health)
			break
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
