package core

// loader.go holds the object-code representation shared with the hex encoding package. It exists
// so test fixtures and the CLI's -hex mode can express a program as discontiguous chunks at
// explicit origins, standing in for the assembler pipeline that is out of scope for the hart
// itself.

import "encoding/binary"

// ObjectCode is a chunk of word-addressed code or data with an explicit origin, the unit the hex
// encoder marshals and unmarshals.
type ObjectCode struct {
	Orig Word
	Code []Word
}

// Flatten renders a set of object-code chunks as a single flat DRAM image suitable for NewCPU,
// with each chunk copied at Orig - DRAMBase.
func Flatten(chunks []ObjectCode) ([]byte, error) {
	var top Word

	for _, c := range chunks {
		end := c.Orig - DRAMBase + Word(len(c.Code)*4)
		if end > top {
			top = end
		}
	}

	image := make([]byte, top)

	for _, c := range chunks {
		off := c.Orig - DRAMBase

		for i, w := range c.Code {
			binary.LittleEndian.PutUint32(image[int(off)+i*4:], uint32(w))
		}
	}

	return image, nil
}
