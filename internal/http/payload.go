package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/blog"
	"github.com/mrlokans/shelf/internal/validation"
)

const (
	mimeForm      = "application/x-www-form-urlencoded"
	mimeMultipart = "multipart/form-data"

	maxMultipartMemory = 8 << 20
	maxJSONBody        = 1 << 20
)

var errNotAnObject = errors.New("JSON parse error - expected an object")

// payload is a request body decoded from JSON, an urlencoded form or a
// multipart form. JSON values keep their decoded type; form values are
// []string.
type payload struct {
	values map[string]any
	files  map[string][]*multipart.FileHeader
}

// readPayload decodes the request body according to its content type.
// An empty body yields an empty payload.
func readPayload(c *gin.Context) (*payload, error) {
	p := &payload{values: make(map[string]any)}

	switch c.ContentType() {
	case mimeForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, fmt.Errorf("malformed form: %w", err)
		}
		for key, vals := range c.Request.PostForm {
			p.values[key] = vals
		}
		return p, nil

	case mimeMultipart:
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, fmt.Errorf("malformed multipart form: %w", err)
		}
		for key, vals := range c.Request.MultipartForm.Value {
			p.values[key] = vals
		}
		p.files = c.Request.MultipartForm.File
		return p, nil
	}

	if c.Request.Body == nil {
		return p, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxJSONBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("JSON parse error - %v", err)
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errNotAnObject
	}
	p.values = obj
	return p, nil
}

func (p *payload) has(name string) bool {
	_, ok := p.values[name]
	return ok
}

// file returns the first uploaded file for name.
func (p *payload) file(name string) (*multipart.FileHeader, bool) {
	if p.files == nil || len(p.files[name]) == 0 {
		return nil, false
	}
	return p.files[name][0], true
}

// requireFields records a "required" error for every name the payload lacks.
func (p *payload) requireFields(errs validation.Errors, names ...string) {
	for _, name := range names {
		if !p.has(name) {
			errs.Add(name, validation.MsgRequired)
		}
	}
}

// str returns the string value of name, or nil when the field is absent or
// has the wrong type (the latter recorded in errs).
func (p *payload) str(name string, errs validation.Errors) *string {
	raw, ok := p.values[name]
	if !ok {
		return nil
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case []string:
		if len(v) > 0 {
			s = v[0]
		}
	case json.Number:
		s = v.String()
	case bool:
		s = strconv.FormatBool(v)
	case nil:
		errs.Add(name, validation.MsgNull)
		return nil
	default:
		errs.Add(name, validation.MsgInvalidString)
		return nil
	}
	return &s
}

// integer returns the integer value of name. Numeric strings are accepted.
func (p *payload) integer(name string, errs validation.Errors) *int {
	raw, ok := p.values[name]
	if !ok {
		return nil
	}

	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = v
	case []string:
		if len(v) > 0 {
			text = v[0]
		}
	case nil:
		errs.Add(name, validation.MsgNull)
		return nil
	default:
		errs.Add(name, validation.MsgInvalidInteger)
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		errs.Add(name, validation.MsgInvalidInteger)
		return nil
	}
	return &n
}

// integers returns a list of integers. A single value is treated as a
// one-element list; form fields may repeat.
func (p *payload) integers(name string, errs validation.Errors) []int {
	raw, ok := p.values[name]
	if !ok {
		return nil
	}

	var texts []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			num, ok := item.(json.Number)
			if !ok {
				errs.Add(name, validation.MsgInvalidInteger)
				return nil
			}
			texts = append(texts, num.String())
		}
	case []string:
		texts = v
	case json.Number:
		texts = []string{v.String()}
	case string:
		texts = []string{v}
	default:
		errs.Add(name, validation.MsgInvalidList)
		return nil
	}

	out := make([]int, 0, len(texts))
	for _, text := range texts {
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			errs.Add(name, validation.MsgInvalidInteger)
			return nil
		}
		out = append(out, n)
	}
	return out
}

// tagNames reads a tag list given either as a comma separated string or a
// JSON list of strings. The second result is false when the field is absent.
func (p *payload) tagNames(name string, errs validation.Errors) ([]string, bool) {
	raw, ok := p.values[name]
	if !ok {
		return nil, false
	}

	switch v := raw.(type) {
	case string:
		return blog.ParseTagNames(v), true
	case []string:
		var names []string
		for _, item := range v {
			names = append(names, strings.Split(item, ",")...)
		}
		return blog.NormalizeTagNames(names), true
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				errs.Add(name, validation.MsgInvalidString)
				return nil, false
			}
			names = append(names, s)
		}
		return blog.NormalizeTagNames(names), true
	case nil:
		return []string{}, true
	default:
		errs.Add(name, validation.MsgInvalidList)
		return nil, false
	}
}

// mergeFieldErrors adds the errors of fields errs does not report yet.
func mergeFieldErrors(errs, more validation.Errors) {
	for field, msgs := range more {
		if _, seen := errs[field]; seen {
			continue
		}
		errs[field] = msgs
	}
}
