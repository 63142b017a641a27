// garnishctl is an operator CLI for the garnishment workflow service.
//
// Usage:
//
//	garnishctl [-addr URL] submit-document -file order.pdf -amount 750 -creditor "Ajax Collections" [...]
//	garnishctl [-addr URL] get-case -id CASE_ID
//	garnishctl [-addr URL] list-cases [-stage STAGE] [-limit N] [-offset N]
//	garnishctl [-addr URL] retry-case -id CASE_ID
//	garnishctl [-addr URL] cancel-case -id CASE_ID -by OPERATOR -reason REASON
//
// Exit codes: 0 success, 1 internal or usage error, 2 case not found,
// 3 operation not allowed in the case's current stage.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	exitOK           = 0
	exitError        = 1
	exitNotFound     = 2
	exitInvalidState = 3
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type client struct {
	addr string
	http *http.Client
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("garnishctl", flag.ContinueOnError)
	addr := global.String("addr", "http://localhost:8080", "service base URL")
	if err := global.Parse(args); err != nil {
		return exitError
	}

	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: garnishctl [-addr URL] COMMAND [flags]")
		fmt.Fprintln(os.Stderr, "commands: submit-document, get-case, list-cases, retry-case, cancel-case")
		return exitError
	}

	c := &client{
		addr: *addr,
		http: &http.Client{Timeout: 60 * time.Second},
	}

	switch rest[0] {
	case "submit-document":
		return c.submitDocument(rest[1:])
	case "get-case":
		return c.getCase(rest[1:])
	case "list-cases":
		return c.listCases(rest[1:])
	case "retry-case":
		return c.retryCase(rest[1:])
	case "cancel-case":
		return c.cancelCase(rest[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", rest[0])
		return exitError
	}
}

func (c *client) submitDocument(args []string) int {
	fs := flag.NewFlagSet("submit-document", flag.ContinueOnError)
	file := fs.String("file", "", "path to the court document (required)")
	caseNumber := fs.String("case-number", "", "court docket number")
	accountID := fs.String("account", "", "garnishee account ID")
	amount := fs.String("amount", "", "owed amount (required)")
	creditor := fs.String("creditor", "", "creditor name (required)")
	creditorRef := fs.String("creditor-ref", "", "creditor reference")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *file == "" || *amount == "" || *creditor == "" {
		fmt.Fprintln(os.Stderr, "submit-document requires -file, -amount and -creditor")
		return exitError
	}

	content, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read document: %v\n", err)
		return exitError
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fields := map[string]string{
		"case_number":        *caseNumber,
		"account_id":         *accountID,
		"amount":             *amount,
		"creditor_name":      *creditor,
		"creditor_reference": *creditorRef,
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			fmt.Fprintf(os.Stderr, "build request: %v\n", err)
			return exitError
		}
	}
	fw, err := w.CreateFormFile("document", filepath.Base(*file))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	if _, err := fw.Write(content); err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	if err := w.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}

	req, err := http.NewRequest(http.MethodPost, c.addr+"/api/v1/cases", body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req)
}

func (c *client) getCase(args []string) int {
	fs := flag.NewFlagSet("get-case", flag.ContinueOnError)
	id := fs.String("id", "", "case ID (required)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "get-case requires -id")
		return exitError
	}

	req, err := http.NewRequest(http.MethodGet, c.addr+"/api/v1/cases/"+url.PathEscape(*id), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	return c.do(req)
}

func (c *client) listCases(args []string) int {
	fs := flag.NewFlagSet("list-cases", flag.ContinueOnError)
	stage := fs.String("stage", "", "filter by stage")
	limit := fs.Int("limit", 0, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	query := url.Values{}
	if *stage != "" {
		query.Set("stage", *stage)
	}
	if *limit > 0 {
		query.Set("limit", strconv.Itoa(*limit))
	}
	if *offset > 0 {
		query.Set("offset", strconv.Itoa(*offset))
	}

	endpoint := c.addr + "/api/v1/cases"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	return c.do(req)
}

func (c *client) retryCase(args []string) int {
	fs := flag.NewFlagSet("retry-case", flag.ContinueOnError)
	id := fs.String("id", "", "case ID (required)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *id == "" {
		fmt.Fprintln(os.Stderr, "retry-case requires -id")
		return exitError
	}

	req, err := http.NewRequest(http.MethodPost, c.addr+"/api/v1/cases/"+url.PathEscape(*id)+"/retry", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	return c.do(req)
}

func (c *client) cancelCase(args []string) int {
	fs := flag.NewFlagSet("cancel-case", flag.ContinueOnError)
	id := fs.String("id", "", "case ID (required)")
	by := fs.String("by", "", "requesting operator (required)")
	reason := fs.String("reason", "", "cancellation reason (required)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *id == "" || *by == "" || *reason == "" {
		fmt.Fprintln(os.Stderr, "cancel-case requires -id, -by and -reason")
		return exitError
	}

	payload, err := json.Marshal(map[string]string{
		"requested_by": *by,
		"reason":       *reason,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}

	req, err := http.NewRequest(http.MethodPost,
		c.addr+"/api/v1/cases/"+url.PathEscape(*id)+"/cancel", bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return exitError
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// do executes the request, prints the response body, and maps the HTTP
// status onto an exit code.
func (c *client) do(req *http.Request) int {
	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		return exitError
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read response: %v\n", err)
		return exitError
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Data) > 0 {
		pretty := &bytes.Buffer{}
		if err := json.Indent(pretty, parsed.Data, "", "  "); err == nil {
			fmt.Println(pretty.String())
		} else {
			fmt.Println(string(parsed.Data))
		}
	} else if parsed.Error != "" {
		fmt.Fprintln(os.Stderr, parsed.Error)
	} else {
		fmt.Println(string(raw))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return exitNotFound
	case resp.StatusCode == http.StatusConflict:
		return exitInvalidState
	case resp.StatusCode >= 400:
		return exitError
	default:
		return exitOK
	}
}
