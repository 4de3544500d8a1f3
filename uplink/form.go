package uplink

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// (sent, total) in bytes
type ProgressFunction func(sent int64, total int64)

type FormFile struct {
	Name string
	Data []byte
}

type FormField struct {
	Name  string
	Value string
	File  *FormFile
}

// Form is the normalized multipart representation of a Post payload.
type Form struct {
	Fields []*FormField
}

func NewForm() *Form {
	return &Form{}
}

func (self *Form) AddValue(name string, value string) *Form {
	self.Fields = append(self.Fields, &FormField{
		Name:  name,
		Value: value,
	})
	return self
}

func (self *Form) AddFile(name string, file *FormFile) *Form {
	self.Fields = append(self.Fields, &FormField{
		Name: name,
		File: file,
	})
	return self
}

// NormalizeForm converts payload into a Form if it is not already one.
// Map payloads are flattened in sorted key order so the encoding is stable.
func NormalizeForm(payload any) *Form {
	switch v := payload.(type) {
	case *Form:
		return v
	case url.Values:
		form := NewForm()
		keys := maps.Keys(v)
		slices.Sort(keys)
		for _, key := range keys {
			for _, value := range v[key] {
				form.AddValue(key, value)
			}
		}
		return form
	case map[string]string:
		form := NewForm()
		keys := maps.Keys(v)
		slices.Sort(keys)
		for _, key := range keys {
			form.AddValue(key, v[key])
		}
		return form
	case map[string]any:
		form := NewForm()
		keys := maps.Keys(v)
		slices.Sort(keys)
		for _, key := range keys {
			switch value := v[key].(type) {
			case *FormFile:
				form.AddFile(key, value)
			case string:
				form.AddValue(key, value)
			default:
				form.AddValue(key, fmt.Sprintf("%v", value))
			}
		}
		return form
	case nil:
		return NewForm()
	default:
		form := NewForm()
		form.AddValue("payload", fmt.Sprintf("%v", payload))
		return form
	}
}

// StripEmptyFiles drops zero-size file fields. Some browsers encode an
// unset file input as an empty part, which trips multipart parsers.
func (self *Form) StripEmptyFiles() {
	fields := []*FormField{}
	for _, field := range self.Fields {
		if field.File != nil && len(field.File.Data) == 0 {
			continue
		}
		fields = append(fields, field)
	}
	self.Fields = fields
}

// Encode renders the form as a multipart body.
func (self *Form) Encode() (contentType string, body []byte, err error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, field := range self.Fields {
		if field.File != nil {
			fw, fileErr := w.CreateFormFile(field.Name, field.File.Name)
			if fileErr != nil {
				return "", nil, fileErr
			}
			if _, fileErr := fw.Write(field.File.Data); fileErr != nil {
				return "", nil, fileErr
			}
		} else {
			if fieldErr := w.WriteField(field.Name, field.Value); fieldErr != nil {
				return "", nil, fieldErr
			}
		}
	}
	if err := w.Close(); err != nil {
		return "", nil, err
	}
	return w.FormDataContentType(), buf.Bytes(), nil
}

type progressReader struct {
	reader   io.Reader
	total    int64
	sent     int64
	progress ProgressFunction
}

func newProgressReader(reader io.Reader, total int64, progress ProgressFunction) *progressReader {
	return &progressReader{
		reader:   reader,
		total:    total,
		progress: progress,
	}
}

func (self *progressReader) Read(p []byte) (int, error) {
	n, err := self.reader.Read(p)
	if 0 < n {
		self.sent += int64(n)
		self.progress(self.sent, self.total)
	}
	return n, err
}
