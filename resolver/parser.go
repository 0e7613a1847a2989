package resolver

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// pageResult is what a PageParser extracts from the share page. Either
// Link is complete, or the share identifiers are set and the caller must
// hit the download API to obtain the signed direct URL.
type pageResult struct {
	Link *ResolvedLink

	ShareID string
	UK      string
	FSID    string

	Filename  string
	SizeBytes int64
}

// PageParser is one strategy for reading the share page. The upstream
// changes its page format often; keeping each known shape behind this
// interface means a format shift is fixed by adding or replacing one
// strategy, not by touching the pipeline.
type PageParser interface {
	Name() string
	Parse(page string) (*pageResult, bool)
}

// DefaultParsers returns the strategy chain in probing order: embedded
// direct link, embedded state object, then bare share identifiers.
func DefaultParsers() []PageParser {
	return []PageParser{dlinkParser{}, stateParser{}, paramsParser{}}
}

var (
	dlinkRe    = regexp.MustCompile(`(?i)["'](?:dlink|download|download_url)["']\s*:\s*["'](https?:[^"']+)["']`)
	filenameRe = regexp.MustCompile(`["']server_filename["']\s*:\s*["']([^"']+)["']`)
	sizeRe     = regexp.MustCompile(`["']size["']\s*:\s*"?(\d+)"?`)
	titleRe    = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	stateRe    = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});?\s*</script>`)
	fsIDRe     = regexp.MustCompile(`["']fs_id["']\s*:\s*"?(\d+)"?`)
	shareIDRe  = regexp.MustCompile(`["']shareid["']\s*:\s*"?(\d+)"?`)
	ukRe       = regexp.MustCompile(`["']uk["']\s*:\s*"?(\d+)"?`)
)

// dlinkParser finds a direct download URL embedded in the page source.
type dlinkParser struct{}

func (dlinkParser) Name() string { return "embedded-dlink" }

func (dlinkParser) Parse(page string) (*pageResult, bool) {
	m := dlinkRe.FindStringSubmatch(page)
	if m == nil {
		return nil, false
	}
	link := &ResolvedLink{
		DirectURL: unescapeSlashes(m[1]),
		Filename:  pageFilename(page),
		SizeBytes: pageSize(page),
	}
	if link.Filename == "" {
		return nil, false
	}
	return &pageResult{Link: link}, true
}

// stateParser reads the JSON state object the page embeds for its own
// frontend and walks the file list inside it.
type stateParser struct{}

func (stateParser) Name() string { return "initial-state" }

func (stateParser) Parse(page string) (*pageResult, bool) {
	m := stateRe.FindStringSubmatch(page)
	if m == nil {
		return nil, false
	}

	var state struct {
		List      []stateFile `json:"list"`
		ShareData struct {
			FileList []stateFile `json:"fileList"`
		} `json:"shareData"`
	}
	if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
		return nil, false
	}

	files := state.List
	if len(files) == 0 {
		files = state.ShareData.FileList
	}
	if len(files) == 0 {
		return nil, false
	}

	f := files[0]
	url := f.DLink
	if url == "" {
		url = f.DownloadLink
	}
	name := f.ServerFilename
	if name == "" {
		name = f.Filename
	}
	if url == "" || name == "" {
		return nil, false
	}
	return &pageResult{Link: &ResolvedLink{
		DirectURL: unescapeSlashes(url),
		Filename:  name,
		SizeBytes: f.Size.Int64(),
	}}, true
}

type stateFile struct {
	DLink          string     `json:"dlink"`
	DownloadLink   string     `json:"downloadLink"`
	ServerFilename string     `json:"server_filename"`
	Filename       string     `json:"filename"`
	Size           looseInt64 `json:"size"`
}

// looseInt64 accepts both numeric and quoted sizes.
type looseInt64 struct{ v int64 }

func (l *looseInt64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		l.v = n
	}
	return nil
}

func (l looseInt64) Int64() int64 { return l.v }

// paramsParser extracts the share identifiers needed for the download
// API when the page embeds no direct link at all.
type paramsParser struct{}

func (paramsParser) Name() string { return "share-params" }

func (paramsParser) Parse(page string) (*pageResult, bool) {
	fs := fsIDRe.FindStringSubmatch(page)
	sh := shareIDRe.FindStringSubmatch(page)
	uk := ukRe.FindStringSubmatch(page)
	if fs == nil || sh == nil || uk == nil {
		return nil, false
	}
	return &pageResult{
		ShareID:   sh[1],
		UK:        uk[1],
		FSID:      fs[1],
		Filename:  pageFilename(page),
		SizeBytes: pageSize(page),
	}, true
}

func pageFilename(page string) string {
	if m := filenameRe.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	if m := titleRe.FindStringSubmatch(page); m != nil {
		title := strings.TrimSpace(m[1])
		title = strings.TrimSpace(strings.TrimSuffix(title, "- Terabox"))
		title = strings.TrimSpace(strings.TrimPrefix(title, "Terabox:"))
		if strings.Contains(title, ".") && len(title) < 150 {
			return title
		}
	}
	return ""
}

func pageSize(page string) int64 {
	if m := sizeRe.FindStringSubmatch(page); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, `/`)
}
