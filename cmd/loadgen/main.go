// Loadgen drives concurrent traffic against the info endpoints and reports
// per-endpoint status codes and latency percentiles. It is meant for
// populating the service's Prometheus metrics.
//
// Usage:
//
//	go run ./cmd/loadgen -base http://localhost:8080/test -concurrency 10 -requests 1000
//	go run ./cmd/loadgen -base http://localhost:8080/test -invalid 0.1 -out summary.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type target struct {
	name  string
	path  string
	query url.Values
}

// targets returns the info endpoints with the query each one requires.
func targets() []target {
	return []target{
		{name: "user", path: "/user", query: url.Values{"userId": {"u"}}},
		{name: "app", path: "/app", query: url.Values{"appId": {"a"}}},
		{name: "user_app", path: "/user/app", query: url.Values{"appId": {"a"}, "userId": {"u"}}},
	}
}

type options struct {
	base        string
	concurrency int
	requests    int
	invalid     float64
}

func (o options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.base, validation.Required, validation.By(validateBaseURL)),
		validation.Field(&o.concurrency, validation.Required, validation.Min(1)),
		validation.Field(&o.requests, validation.Min(0)),
		validation.Field(&o.invalid, validation.Min(0.0), validation.Max(1.0)),
	)
}

func validateBaseURL(value interface{}) error {
	base, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(base)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

// omitter spreads a fraction of invalid requests evenly over one target's
// request sequence.
type omitter struct {
	fraction float64
	acc      float64
}

func (o *omitter) next() bool {
	o.acc += o.fraction
	if o.acc >= 1 {
		o.acc--
		return true
	}
	return false
}

type endpointStats struct {
	Count       int           `json:"count"`
	Errors      int           `json:"errors"`
	StatusCodes map[int]int   `json:"status_codes"`
	P50         time.Duration `json:"p50"`
	P90         time.Duration `json:"p90"`
	P99         time.Duration `json:"p99"`
	latencies   []time.Duration
}

type report struct {
	Base       string                    `json:"base"`
	Total      int                       `json:"total"`
	Duration   time.Duration             `json:"duration"`
	Throughput float64                   `json:"throughput_rps"`
	Endpoints  map[string]*endpointStats `json:"endpoints"`
}

// requestURL builds the URL for the idx-th request. With omit set the query
// is left off so the service answers 400.
func requestURL(base string, t target, idx int, omit bool) string {
	u := strings.TrimSuffix(base, "/") + t.path
	if omit {
		return u
	}

	q := url.Values{}
	for k, v := range t.query {
		q[k] = []string{fmt.Sprintf("%s%d", v[0], idx)}
	}
	return u + "?" + q.Encode()
}

func run(ctx context.Context, client *http.Client, opts options) (*report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	all := targets()
	rep := &report{Base: opts.base, Endpoints: make(map[string]*endpointStats, len(all))}
	omitters := make(map[string]*omitter, len(all))
	for _, t := range all {
		rep.Endpoints[t.name] = &endpointStats{StatusCodes: make(map[int]int)}
		omitters[t.name] = &omitter{fraction: opts.invalid}
	}

	var mu sync.Mutex
	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()

	for i := 0; i < opts.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				t := all[idx%len(all)]

				mu.Lock()
				omit := omitters[t.name].next()
				mu.Unlock()

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(opts.base, t, idx, omit), nil)
				if err != nil {
					continue
				}

				begin := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(begin)

				mu.Lock()
				st := rep.Endpoints[t.name]
				st.Count++
				st.latencies = append(st.latencies, dur)
				if err != nil {
					st.Errors++
				} else {
					st.StatusCodes[resp.StatusCode]++
				}
				mu.Unlock()

				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}

	func() {
		defer close(jobs)
		for i := 0; i < opts.requests; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	rep.Duration = time.Since(start)
	for _, st := range rep.Endpoints {
		rep.Total += st.Count
		st.P50, st.P90, st.P99 = percentiles(st.latencies)
	}
	if rep.Duration > 0 {
		rep.Throughput = float64(rep.Total) / rep.Duration.Seconds()
	}

	return rep, nil
}

func percentiles(latencies []time.Duration) (p50, p90, p99 time.Duration) {
	if len(latencies) == 0 {
		return 0, 0, 0
	}

	tmp := make([]time.Duration, len(latencies))
	copy(tmp, latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	pick := func(p float64) time.Duration { return tmp[int(float64(len(tmp)-1)*p)] }
	return pick(0.50), pick(0.90), pick(0.99)
}

func (r *report) print(w io.Writer) {
	fmt.Fprintln(w, "--- Load Summary ---")
	fmt.Fprintf(w, "Base: %s\n", r.Base)
	fmt.Fprintf(w, "Total: %d  Duration: %v  Throughput: %.2f req/s\n", r.Total, r.Duration, r.Throughput)

	names := make([]string, 0, len(r.Endpoints))
	for name := range r.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := r.Endpoints[name]
		fmt.Fprintf(w, "  %s -> count=%d errors=%d codes=%v p50=%v p90=%v p99=%v\n",
			name, st.Count, st.Errors, st.StatusCodes, st.P50, st.P90, st.P99)
	}
}

func writeSummary(path string, rep *report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		f.Close()
		return fmt.Errorf("write json summary: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close json file: %w", err)
	}

	return nil
}

func main() {
	var (
		base        = flag.String("base", "http://localhost:8080/test", "Base URL of the info endpoints")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		invalid     = flag.Float64("invalid", 0, "Fraction of requests sent without their required parameters")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	opts := options{
		base:        *base,
		concurrency: *concurrency,
		requests:    *requests,
		invalid:     *invalid,
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rep, err := run(ctx, &http.Client{Timeout: *timeout}, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load run failed: %v\n", err)
		os.Exit(1)
	}
	rep.print(os.Stdout)

	if *outJSON != "" {
		if err := writeSummary(*outJSON, rep); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	for _, st := range rep.Endpoints {
		if st.Errors > 0 {
			os.Exit(2)
		}
	}
}
