package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/listing-relay/internal/config"
	"github.com/listing-relay/internal/repository"
	"github.com/listing-relay/internal/template"
)

// Scheduler endpoints relative to the configured base URL.
const (
	singleTaskPath = "/add_req_task"
	batchTaskPath  = "/add_req_tasks"
)

// Client submits tasks to the external scheduler service. Single-task calls
// use a short timeout; batch calls allow more time since the payload volume
// is larger. Neither path retries: once the scheduler accepts a task,
// retrying its execution is the scheduler's job, and a rejected handoff is
// reported to the caller as false.
type Client struct {
	baseURL     string
	callbackURL string
	cookie      string
	single      *http.Client
	batch       *http.Client
}

// NewClient builds a scheduler client from the application config. The
// optional cookie pair is forwarded in every envelope so the scheduler can
// replay it against the target.
func NewClient(cfg config.Config) *Client {
	cookie := ""
	if cfg.CookieAppname != "" && cfg.CookieToken != "" {
		cookie = fmt.Sprintf("appname=%s; token=%s", cfg.CookieAppname, cfg.CookieToken)
	}
	return &Client{
		baseURL:     cfg.SchedulerBaseURL,
		callbackURL: cfg.CallbackURL,
		cookie:      cookie,
		single:      &http.Client{Timeout: 10 * time.Second},
		batch:       &http.Client{Timeout: 30 * time.Second},
	}
}

// singleTaskEnvelope is the wire shape of POST {base}/add_req_task.
type singleTaskEnvelope struct {
	Cookies                string `json:"cookies,omitempty"`
	Payload                any    `json:"payload,omitempty"`
	TargetURL              string `json:"target_url"`
	RequestIntervalMinutes int    `json:"request_interval_minutes"`
	RandomMin              int    `json:"random_min"`
	RandomMax              int    `json:"random_max"`
	SendTime               string `json:"send_time"`
}

// SendTask submits one listing as a scheduler task. The listing's body
// template is rendered, the linkData/num_iid shape resolved against the
// product link, and the envelope posted. Returns true only on HTTP 2xx;
// every failure mode is logged with the listing id and reported as false.
func (c *Client) SendTask(ctx context.Context, l *repository.ProductListing, cfg *repository.RequestConfig) bool {
	d, err := BuildDescriptor(cfg, l)
	if err != nil {
		log.Printf("dispatch: listing %d: %v", l.ID, err)
		return false
	}
	payload := template.ResolveLinkData(d.Body, strVal(l.ProductLink))

	env := singleTaskEnvelope{
		Cookies:                c.cookie,
		Payload:                payload,
		TargetURL:              cfg.RequestURL,
		RequestIntervalMinutes: cfg.RequestIntervalMinutes,
		RandomMin:              cfg.RandomMin,
		RandomMax:              cfg.RandomMax,
		SendTime:               time.Now().UTC().Format(time.RFC3339),
	}
	if ok := c.post(ctx, c.single, c.baseURL+singleTaskPath, env); !ok {
		log.Printf("dispatch: listing %d: scheduler rejected single task", l.ID)
		return false
	}
	return true
}

// Task pairs a listing with its resolved config for batch submission.
// Config may be nil when resolution failed; such tasks are skipped.
type Task struct {
	Listing *repository.ProductListing
	Config  *repository.RequestConfig
}

// batchTaskItem is one entry of the add_req_tasks envelope. CallbackID is
// the stringified listing id the scheduler echoes back on completion.
type batchTaskItem struct {
	Name        string `json:"name"`
	StartTime   string `json:"start_time"`
	Header      any    `json:"header"`
	Body        any    `json:"body"`
	Method      string `json:"method"`
	URL         string `json:"url"`
	CallbackURL string `json:"callback_url"`
	CallbackID  string `json:"callback_id"`
}

type batchEnvelope struct {
	TasksData []batchTaskItem `json:"tasks_data"`
}

// SendBatch submits many listings in one envelope. Tasks without a config
// are skipped with a warning and excluded; if nothing remains, no call is
// made and false is returned. The handoff is all-or-nothing: true means the
// scheduler accepted the whole envelope.
func (c *Client) SendBatch(ctx context.Context, tasks []Task) bool {
	items := make([]batchTaskItem, 0, len(tasks))
	now := time.Now().UTC().Format(time.RFC3339)
	for _, t := range tasks {
		if t.Config == nil {
			log.Printf("dispatch: listing %d: no request config, skipping in batch", t.Listing.ID)
			continue
		}
		d, err := BuildDescriptor(t.Config, t.Listing)
		if err != nil {
			log.Printf("dispatch: listing %d: %v, skipping in batch", t.Listing.ID, err)
			continue
		}
		items = append(items, batchTaskItem{
			Name:        TaskName(t.Listing),
			StartTime:   now,
			Header:      d.Header,
			Body:        d.Body,
			Method:      d.Method,
			URL:         d.URL,
			CallbackURL: c.callbackURL,
			CallbackID:  strconv.FormatUint(t.Listing.ID, 10),
		})
	}
	if len(items) == 0 {
		log.Printf("dispatch: batch empty after skipping unresolvable listings, not sending")
		return false
	}
	if ok := c.post(ctx, c.batch, c.baseURL+batchTaskPath, batchEnvelope{TasksData: items}); !ok {
		log.Printf("dispatch: scheduler rejected batch of %d tasks", len(items))
		return false
	}
	return true
}

// post sends a JSON body and reports whether the response was 2xx. Network
// errors and bad statuses are logged here; callers add listing context.
func (c *Client) post(ctx context.Context, hc *http.Client, url string, body any) bool {
	raw, err := json.Marshal(body)
	if err != nil {
		log.Printf("dispatch: marshal envelope: %v", err)
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		log.Printf("dispatch: build request: %v", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		log.Printf("dispatch: post %s: %v", url, err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("dispatch: post %s: status %d", url, resp.StatusCode)
		return false
	}
	return true
}
