package main

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sentrylink/relay/loadtest"
)

func main() {
	count := 10
	if os.Getenv("CLIENT_COUNT") != "" {
		c, e := strconv.Atoi(os.Getenv("CLIENT_COUNT"))
		if e != nil {
			logrus.Fatalf("bad CLIENT_COUNT %v", e)
		}
		count = c
	}
	runFor := 5 * time.Minute
	if os.Getenv("RUN_FOR") != "" {
		d, e := time.ParseDuration(os.Getenv("RUN_FOR"))
		if e != nil {
			logrus.Fatalf("bad RUN_FOR %v", e)
		}
		runFor = d
	}
	jwt := os.Getenv("JWT")
	if jwt == "" {
		logrus.Fatal("JWT required")
	}

	logrus.Infof("starting %d clients for %s", count, runFor)
	wg := sync.WaitGroup{}
	for i := 0; i < count; i++ {
		wg.Add(1)
		client := loadtest.Client{
			Index:   i,
			AgentID: loadtest.AgentRoomFor(i),
			RunFor:  runFor,
			Jwt:     jwt,
		}
		go client.Connect(&wg)
	}
	wg.Wait()
	logrus.Info("all clients done")
}
