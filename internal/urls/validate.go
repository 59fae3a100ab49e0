package urls

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/companyscout/internal/config"
	"github.com/rcliao/companyscout/internal/model"
	"github.com/rcliao/companyscout/pkg/anthropic"
)

// userAgent identifies validation fetches to site operators.
const userAgent = "companyscout/1.0 (+https://github.com/rcliao/companyscout)"

const validateSystemPrompt = `You judge whether a URL is plausibly the official page of the requested category for a given company. Respond with a valid JSON object: {"valid": <true|false>, "confidence": <0.0-1.0>, "reason": "<brief explanation>"}`

const validateUserPrompt = `Company: %s
Category: %s
URL: %s
Page title: %s

Is this plausibly the official %s page for this company?`

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Validator gates heuristic URL candidates through reachability checks and
// a model-based content classification.
type Validator struct {
	cfg     config.ValidationConfig
	llm     anthropic.Client
	modelID string
	http    *http.Client
}

// NewValidator creates a Validator. llm may be nil when model validation is
// disabled in the config.
func NewValidator(cfg config.ValidationConfig, llm anthropic.Client, modelID string) *Validator {
	timeout := time.Duration(cfg.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Validator{
		cfg:     cfg,
		llm:     llm,
		modelID: modelID,
		http:    &http.Client{Timeout: timeout},
	}
}

// Report summarizes a validation pass for observability.
type Report struct {
	Rejected   map[model.URLCategory]string
	ModelCalls int
	Usage      anthropic.TokenUsage
}

// Validate checks each non-empty URL in the bundle. All four categories run
// in parallel and fail independently; the returned bundle contains only the
// URLs that passed.
func (v *Validator) Validate(ctx context.Context, company string, bundle model.URLBundle) (model.URLBundle, Report) {
	out := model.URLBundle{
		Alternates:  bundle.Alternates,
		FoundedYear: bundle.FoundedYear,
	}
	report := Report{Rejected: make(map[model.URLCategory]string)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, cat := range model.URLCategories {
		candidate := bundle.Get(cat)
		if candidate.URL == "" {
			continue
		}
		g.Go(func() error {
			accepted, reason, usage, calls := v.validateOne(gctx, company, cat, candidate)
			mu.Lock()
			defer mu.Unlock()
			report.ModelCalls += calls
			report.Usage.Add(usage)
			if accepted {
				out.Set(cat, candidate)
			} else {
				report.Rejected[cat] = reason
				out.AddAlternate(cat, candidate.URL)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out, report
}

// validateOne runs the full gate for a single category. Any transport or
// model failure rejects the candidate; rejection never raises.
func (v *Validator) validateOne(ctx context.Context, company string, cat model.URLCategory, candidate model.CategoryURL) (bool, string, anthropic.TokenUsage, int) {
	log := zap.L().With(
		zap.String("company", company),
		zap.String("category", string(cat)),
		zap.String("url", candidate.URL),
	)

	// Defense in depth: the classifier already filters these, but nothing
	// blocklisted may ever be persisted.
	if Blocked(candidate.URL) {
		log.Warn("validate: blocklisted url reached validator")
		return false, "blocklisted url", anthropic.TokenUsage{}, 0
	}

	title := ""
	if v.cfg.CheckReachability {
		fetchedTitle, err := v.fetchTitle(ctx, candidate.URL)
		if err != nil {
			log.Info("validate: reachability check failed", zap.Error(err))
			return false, err.Error(), anthropic.TokenUsage{}, 0
		}
		title = fetchedTitle
	}

	if !v.cfg.UseModel || v.llm == nil {
		return true, "", anthropic.TokenUsage{}, 0
	}

	verdict, usage, err := v.askModel(ctx, company, cat, candidate.URL, title)
	if err != nil {
		log.Warn("validate: model check failed", zap.Error(err))
		return false, "model check failed", usage, 1
	}

	minConf := v.cfg.MinConfidence[string(cat)]
	if !verdict.Valid || verdict.Confidence < minConf {
		log.Info("validate: rejected by model",
			zap.Bool("valid", verdict.Valid),
			zap.Float64("confidence", verdict.Confidence),
			zap.String("reason", verdict.Reason),
		)
		return false, verdict.Reason, usage, 1
	}

	return true, "", usage, 1
}

// fetchTitle performs the bounded reachability check: the URL must answer
// 2xx with an HTML content type, and the post-redirect landing host must not
// be blocklisted. Returns the page title when one is present.
func (v *Validator) fetchTitle(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := v.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(strings.ToLower(ct), "text/html") {
		return "", fmt.Errorf("non-html content type %q", ct)
	}
	if resp.Request != nil && resp.Request.URL != nil && Blocked(resp.Request.URL.String()) {
		return "", fmt.Errorf("redirected to blocklisted url %s", resp.Request.URL)
	}

	// Only the head is needed for the title.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if m := titlePattern.FindSubmatch(body); len(m) == 2 {
		return strings.TrimSpace(string(m[1])), nil
	}
	return "", nil
}

type modelVerdict struct {
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (v *Validator) askModel(ctx context.Context, company string, cat model.URLCategory, rawURL, title string) (modelVerdict, anthropic.TokenUsage, error) {
	prompt := fmt.Sprintf(validateUserPrompt, company, cat, rawURL, title, cat)

	resp, err := v.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     v.modelID,
		MaxTokens: 256,
		System:    anthropic.BuildCachedSystemBlocks(validateSystemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return modelVerdict{}, anthropic.TokenUsage{}, err
	}

	var verdict modelVerdict
	if err := json.Unmarshal([]byte(anthropic.CleanJSON(resp.Text())), &verdict); err != nil {
		return modelVerdict{}, resp.Usage, err
	}
	return verdict, resp.Usage, nil
}
