// Package archive reads and writes inkvision bundles: a zip holding one
// drawing session, its overlay and its recognition result.
//
// Layout, for a session id <id>:
//
//	<id>.content          json metadata
//	<id>.ink.json         the ink with ids and timestamps
//	<id>/0.rm             the same strokes as a tablet page
//	<id>.overlay.json     overlay commands (optional)
//	<id>.recognition.txt  recognition candidates, one per line (optional)
//	<id>.pdf              rendered preview (optional)
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/odmlbook/inkvision/encoding/rm"
	"github.com/odmlbook/inkvision/ink"
	"github.com/odmlbook/inkvision/log"
	"github.com/odmlbook/inkvision/overlay"
)

const (
	FileType     = "ink"
	contentExt   = ".content"
	inkExt       = ".ink.json"
	overlayExt   = ".overlay.json"
	recogExt     = ".recognition.txt"
	payloadExt   = ".pdf"
	pageName     = "0.rm"
	defaultWidth = 2
)

// ErrNoContent is returned when a bundle has no .content entry.
var ErrNoContent = errors.New("bundle has no content file")

// Content is the metadata entry of a bundle.
type Content struct {
	ID          string `json:"id"`
	FileType    string `json:"fileType"`
	StrokeCount int    `json:"strokeCount"`
	PointCount  int    `json:"pointCount"`
	CreatedTime int64  `json:"createdTime"`
	Version     string `json:"version,omitempty"`
}

// Zip is a bundle in memory.
type Zip struct {
	Content     Content
	Ink         ink.Ink
	Overlay     []overlay.Command
	Recognition []string
	Payload     []byte
}

func NewZip() *Zip {
	return &Zip{Content: Content{FileType: FileType}}
}

func createZipContent(in ink.Ink, version string) (string, error) {
	c := Content{
		ID:          in.ID.String(),
		FileType:    FileType,
		StrokeCount: len(in.Strokes),
		PointCount:  in.PointCount(),
		CreatedTime: time.Now().UnixMilli(),
		Version:     version,
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type entry struct {
	name string
	data []byte
}

func addFile(w *zip.Writer, name string, data []byte) error {
	f, err := w.Create(name)
	if err != nil {
		return errors.Wrapf(err, "can't create %s", name)
	}
	_, err = f.Write(data)
	return err
}

// Write stores the bundle. The session gets an id when it has none.
func (z *Zip) Write(w io.Writer) error {
	if z.Ink.ID == uuid.Nil {
		z.Ink.ID = uuid.New()
	}
	id := z.Ink.ID.String()

	content, err := createZipContent(z.Ink, z.Content.Version)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), &z.Content); err != nil {
		return err
	}

	inkJSON, err := json.Marshal(z.Ink)
	if err != nil {
		return err
	}
	page, err := rm.FromInk(z.Ink, defaultWidth).MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "can't encode page")
	}

	zw := zip.NewWriter(w)
	files := []entry{
		{id + contentExt, []byte(content)},
		{id + inkExt, inkJSON},
		{path.Join(id, pageName), page},
	}
	if len(z.Overlay) > 0 {
		b, err := json.Marshal(z.Overlay)
		if err != nil {
			return err
		}
		files = append(files, entry{id + overlayExt, b})
	}
	if len(z.Recognition) > 0 {
		files = append(files, entry{id + recogExt, []byte(strings.Join(z.Recognition, "\n") + "\n")})
	}
	if len(z.Payload) > 0 {
		files = append(files, entry{id + payloadExt, z.Payload})
	}

	for _, f := range files {
		if err := addFile(zw, f.name, f.data); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func readFile(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Read loads a bundle. When the ink json is missing the strokes are taken
// from the .rm page.
func (z *Zip) Read(r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return errors.Wrap(err, "can't open bundle")
	}

	files := map[string]*zip.File{}
	var contentName string
	for _, f := range zr.File {
		files[f.Name] = f
		if strings.HasSuffix(f.Name, contentExt) && !strings.Contains(f.Name, "/") {
			contentName = f.Name
		}
	}
	if contentName == "" {
		return ErrNoContent
	}
	id := strings.TrimSuffix(contentName, contentExt)

	b, err := readFile(files[contentName])
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &z.Content); err != nil {
		return errors.Wrap(err, "can't parse content")
	}

	if f, ok := files[id+inkExt]; ok {
		b, err := readFile(f)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &z.Ink); err != nil {
			return errors.Wrap(err, "can't parse ink")
		}
	} else if f, ok := files[path.Join(id, pageName)]; ok {
		log.Trace.Printf("bundle %s: no ink json, reading page", id)
		b, err := readFile(f)
		if err != nil {
			return err
		}
		page := &rm.Rm{}
		if err := page.UnmarshalBinary(b); err != nil {
			return errors.Wrap(err, "can't decode page")
		}
		z.Ink = page.ToInk()
		if parsed, err := uuid.Parse(id); err == nil {
			z.Ink.ID = parsed
		}
	} else {
		return fmt.Errorf("bundle %s has no strokes", id)
	}

	if f, ok := files[id+overlayExt]; ok {
		b, err := readFile(f)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &z.Overlay); err != nil {
			return errors.Wrap(err, "can't parse overlay")
		}
	}
	if f, ok := files[id+recogExt]; ok {
		b, err := readFile(f)
		if err != nil {
			return err
		}
		z.Recognition = nil
		for _, line := range strings.Split(string(b), "\n") {
			if line != "" {
				z.Recognition = append(z.Recognition, line)
			}
		}
	}
	if f, ok := files[id+payloadExt]; ok {
		if z.Payload, err = readFile(f); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes loads a bundle held in memory.
func (z *Zip) ReadBytes(b []byte) error {
	return z.Read(bytes.NewReader(b), int64(len(b)))
}
