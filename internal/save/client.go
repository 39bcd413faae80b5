package save

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/goliatone/go-front-editor/internal/logging"
	"github.com/goliatone/go-front-editor/pkg/interfaces"
)

var (
	ErrTokenNotFound = errors.New("save: token input not found in host fragment")
	ErrHostRejected  = errors.New("save: host rejected the request")
	ErrHTTPStatus    = errors.New("save: host returned a failure status")
)

// Endpoints are query-parameter toggles on the page URL itself.
const (
	tokenQuery        = "markdownFrontEditorToken=1"
	saveQuery         = "markdownFrontEditorSave=1"
	translationsQuery = "markdownFrontEditorTranslations=1"
)

var (
	inputRe = regexp.MustCompile(`(?is)<input[^>]*type=["']?hidden["']?[^>]*>`)
	nameRe  = regexp.MustCompile(`(?i)name=["']([^"']+)["']`)
	valueRe = regexp.MustCompile(`(?i)value=["']([^"']*)["']`)
)

// Client talks to the host's page-URL endpoints.
type Client struct {
	pageURL string
	http    *http.Client
	logger  interfaces.Logger
}

var _ interfaces.HostClient = (*Client)(nil)

// NewClient builds a host client for a page. A nil httpClient falls back
// to http.DefaultClient.
func NewClient(pageURL string, httpClient *http.Client, provider interfaces.LoggerProvider) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		pageURL: pageURL,
		http:    httpClient,
		logger:  logging.SaveLogger(provider),
	}
}

// FetchToken extracts the CSRF tuple from the host's token fragment: the
// first hidden input's name/value pair.
func (c *Client) FetchToken(ctx context.Context) (interfaces.Token, error) {
	body, err := c.get(ctx, c.endpoint(tokenQuery))
	if err != nil {
		return interfaces.Token{}, err
	}
	for _, input := range inputRe.FindAllString(string(body), -1) {
		name := nameRe.FindStringSubmatch(input)
		value := valueRe.FindStringSubmatch(input)
		if name != nil && value != nil {
			return interfaces.Token{Name: name[1], Value: value[1]}, nil
		}
	}
	return interfaces.Token{}, ErrTokenNotFound
}

// SaveField posts one field's Markdown as a form-encoded body.
func (c *Client) SaveField(ctx context.Context, token interfaces.Token, req interfaces.SingleSaveRequest) (*interfaces.SaveResponse, error) {
	form := url.Values{}
	form.Set("markdown", req.Markdown)
	form.Set("mdName", req.Name)
	form.Set("mdScope", req.Scope)
	if req.Section != "" {
		form.Set("mdSection", req.Section)
	}
	form.Set("pageId", req.PageID)
	form.Set("fieldId", req.FieldID)
	if req.Lang != "" {
		form.Set("lang", req.Lang)
	}
	if token.Name != "" {
		form.Set(token.Name, token.Value)
	}
	return c.postForm(ctx, c.endpoint(saveQuery), form)
}

// SaveBatch posts every dirty field in one request, the fields serialized
// as a JSON array inside the form body.
func (c *Client) SaveBatch(ctx context.Context, token interfaces.Token, req interfaces.BatchSaveRequest) (*interfaces.SaveResponse, error) {
	fields, err := json.Marshal(req.Fields)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("batch", "1")
	form.Set("pageId", req.PageID)
	form.Set("fields", string(fields))
	if token.Name != "" {
		form.Set(token.Name, token.Value)
	}
	return c.postForm(ctx, c.endpoint(saveQuery), form)
}

// Translations fetches per-language Markdown for a field.
func (c *Client) Translations(ctx context.Context, name, pageID, scope, section string) (map[string]string, error) {
	endpoint := c.endpoint(translationsQuery) +
		"&mdName=" + url.QueryEscape(name) +
		"&pageId=" + url.QueryEscape(pageID) +
		"&mdScope=" + url.QueryEscape(scope) +
		"&mdSection=" + url.QueryEscape(section)
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Status int               `json:"status"`
		Data   map[string]string `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Status != 1 {
		return nil, ErrHostRejected
	}
	return payload.Data, nil
}

// ListImages asks the host for the page's image library.
func (c *Client) ListImages(ctx context.Context, pageID string) ([]interfaces.ImageInfo, error) {
	form := url.Values{}
	form.Set("action", "listImages")
	form.Set("pageId", pageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pageURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Status int                    `json:"status"`
		Images []interfaces.ImageInfo `json:"images"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload.Status != 1 {
		return nil, ErrHostRejected
	}
	return payload.Images, nil
}

func (c *Client) endpoint(query string) string {
	sep := "?"
	if strings.Contains(c.pageURL, "?") {
		sep = "&"
	}
	return c.pageURL + sep + query
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*interfaces.SaveResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return decodeSaveResponse(body)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	// 4xx/5xx are failures regardless of body shape.
	if res.StatusCode >= 400 {
		c.logger.Warn("save.http_failure", "status", res.StatusCode, "url", req.URL.String())
		return nil, fmt.Errorf("%w: %d", ErrHTTPStatus, res.StatusCode)
	}
	return body, nil
}

// decodeSaveResponse accepts both host response shapes: "html" may be a
// bare string or a field-keyed map, and "htmlMap" overrides it when set.
func decodeSaveResponse(body []byte) (*interfaces.SaveResponse, error) {
	var raw struct {
		Status        int                            `json:"status"`
		Message       string                         `json:"message"`
		HTML          json.RawMessage                `json:"html"`
		HTMLMap       map[string]string              `json:"htmlMap"`
		Markdowns     map[string]string              `json:"markdowns"`
		SectionsIndex []interfaces.SectionIndexEntry `json:"sectionsIndex"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	res := &interfaces.SaveResponse{
		OK:            raw.Status == 1,
		Message:       raw.Message,
		HTMLMap:       raw.HTMLMap,
		Markdowns:     raw.Markdowns,
		SectionsIndex: raw.SectionsIndex,
	}
	if res.HTMLMap == nil && len(raw.HTML) > 0 {
		var asMap map[string]string
		if err := json.Unmarshal(raw.HTML, &asMap); err == nil {
			res.HTMLMap = asMap
		} else {
			var asString string
			if err := json.Unmarshal(raw.HTML, &asString); err == nil && asString != "" {
				res.HTMLMap = map[string]string{"": asString}
			}
		}
	}
	return res, nil
}
