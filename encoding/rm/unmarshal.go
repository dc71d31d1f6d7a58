package rm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownHeader = errors.New("unknown header")

const pointSize = 6 * 4

// UnmarshalBinary implements encoding.BinaryUnmarshaler for
// transforming bytes into a Rm page
func (rm *Rm) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	if err := r.checkHeader(); err != nil {
		return err
	}
	rm.Version = r.version

	nbLayers, err := r.readCount(4)
	if err != nil {
		return err
	}

	rm.Layers = make([]Layer, nbLayers)
	for i := 0; i < nbLayers; i++ {
		nbLines, err := r.readCount(4)
		if err != nil {
			return err
		}

		rm.Layers[i].Lines = make([]Line, nbLines)
		for j := 0; j < nbLines; j++ {
			line, err := r.readLine()
			if err != nil {
				return fmt.Errorf("layer %d line %d: %w", i, j, err)
			}
			rm.Layers[i].Lines[j] = line
		}
	}

	return nil
}

type reader struct {
	*bytes.Reader
	version Version
}

func newReader(data []byte) reader {
	// V5 is the default, the real value is set by checkHeader
	return reader{bytes.NewReader(data), V5}
}

func (r *reader) checkHeader() error {
	buf := make([]byte, HeaderLen)

	n, err := r.Read(buf)
	if err != nil {
		return fmt.Errorf("can't read header: %w", err)
	}

	if n != HeaderLen {
		return fmt.Errorf("wrong header size")
	}

	switch string(buf) {
	case HeaderV5:
		r.version = V5
	case HeaderV3:
		r.version = V3
	default:
		if strings.HasPrefix(string(buf), "reMarkable .lines file, version=6") {
			return fmt.Errorf("%w: version 6 is not supported", ErrUnknownHeader)
		}
		return ErrUnknownHeader
	}

	return nil
}

func (r *reader) readNumber() (uint32, error) {
	var nb uint32
	if err := binary.Read(r, binary.LittleEndian, &nb); err != nil {
		return 0, fmt.Errorf("wrong number read: %w", err)
	}
	return nb, nil
}

// readCount reads a number of items and checks that the remaining data can
// hold that many items of at least minSize bytes.
func (r *reader) readCount(minSize int) (int, error) {
	nb, err := r.readNumber()
	if err != nil {
		return 0, err
	}
	if int64(nb)*int64(minSize) > int64(r.Len()) {
		return 0, fmt.Errorf("count %d exceeds remaining data", nb)
	}
	return int(nb), nil
}

func (r *reader) readLine() (Line, error) {
	var line Line

	fields := []interface{}{&line.BrushType, &line.BrushColor, &line.Padding, &line.BrushSize}
	// this attribute has been added in v5
	if r.version == V5 {
		fields = append(fields, &line.Unknown)
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return line, fmt.Errorf("failed to read line: %w", err)
		}
	}

	nbPoints, err := r.readCount(pointSize)
	if err != nil {
		return line, err
	}

	if nbPoints == 0 {
		return line, nil
	}

	line.Points = make([]Point, nbPoints)
	for i := 0; i < nbPoints; i++ {
		p, err := r.readPoint()
		if err != nil {
			return line, err
		}
		line.Points[i] = p
	}

	return line, nil
}

func (r *reader) readPoint() (Point, error) {
	var point Point
	if err := binary.Read(r, binary.LittleEndian, &point); err != nil {
		return point, fmt.Errorf("failed to read point: %w", err)
	}
	return point, nil
}
