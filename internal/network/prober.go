package network

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
)

// Prober feeds a Monitor by periodically requesting a URL. Any HTTP
// response counts as reachable; a transport error counts as disconnected.
type Prober struct {
	monitor   *Monitor
	client    *http.Client
	url       string
	interval  time.Duration
	scheduler *gocron.Scheduler
}

func NewProber(monitor *Monitor, client *http.Client, url string, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Prober{
		monitor:  monitor,
		client:   client,
		url:      url,
		interval: interval,
	}
}

// Probe performs one check and updates the monitor.
func (p *Prober) Probe(ctx context.Context) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		log.Printf("ERROR: network: invalid probe url %q: %v", p.url, err)
		return p.monitor.Status()
	}

	var st Status
	resp, err := p.client.Do(req)
	if err != nil {
		log.Printf("DEBUG: network: probe failed: %v", err)
		reachable := false
		st = Status{Connected: false, InternetReachable: &reachable, Type: "none"}
	} else {
		resp.Body.Close()
		reachable := true
		st = Status{Connected: true, InternetReachable: &reachable, Type: "probe"}
	}

	p.monitor.Update(st)
	return st
}

// Start probes once and then on every interval.
func (p *Prober) Start() error {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(p.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		defer cancel()
		p.Probe(ctx)
	})
	if err != nil {
		return err
	}

	s.StartAsync()
	p.scheduler = s
	return nil
}

func (p *Prober) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}
