package rm

import (
	"bytes"
	"encoding/binary"
)

// MarshalBinary implements encoding.BinaryMarshaler for
// transforming a Rm page into v5 bytes
func (rm *Rm) MarshalBinary() (data []byte, err error) {
	w := new(writer)

	w.writeHeader()
	w.writeNumber(len(rm.Layers))

	for _, layer := range rm.Layers {
		w.writeNumber(len(layer.Lines))

		for _, line := range layer.Lines {
			w.writeLine(line)
		}
	}

	return w.Bytes(), nil
}

type writer struct {
	b bytes.Buffer
}

func (w *writer) Bytes() []byte {
	return w.b.Bytes()
}

// writes into a bytes.Buffer never fail, so the helpers return nothing

func (w *writer) writeHeader() {
	w.b.WriteString(HeaderV5)
}

func (w *writer) writeNumber(n int) {
	binary.Write(&w.b, binary.LittleEndian, uint32(n))
}

func (w *writer) writeFloat32(n float32) {
	binary.Write(&w.b, binary.LittleEndian, n)
}

func (w *writer) writeLine(line Line) {
	w.writeNumber(int(line.BrushType))
	w.writeNumber(int(line.BrushColor))
	w.writeNumber(int(line.Padding))
	w.writeFloat32(float32(line.BrushSize))
	w.writeFloat32(line.Unknown)

	w.writeNumber(len(line.Points))
	for _, point := range line.Points {
		w.writePoint(point)
	}
}

func (w *writer) writePoint(point Point) {
	w.writeFloat32(point.X)
	w.writeFloat32(point.Y)
	w.writeFloat32(point.Speed)
	w.writeFloat32(point.Direction)
	w.writeFloat32(point.Width)
	w.writeFloat32(point.Pressure)
}
