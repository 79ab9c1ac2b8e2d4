// Package encoding includes implementations of encoding.TextMarshaler and encoding.TextUnmarshaler
// to encode and decode binary object code. It is based on Intel Hex file-encoding.
//
// Each file is composed of lines composed of a prefix, length, address, type, (optional data) and a
// checksum. In shorthand:
//
//	:LLAAAAAAAATT[DD...]CC
//	0123456789
//
// See [Grammar] for a formal grammar. Addresses and words are 32 bits, twice the width of stock
// Intel Hex's 16-bit addresses, since the hart's instructions and data are 32 bits wide.
//
// # Bugs
//
// This is not a complete implementation Intel Hex encoding; it is for internal use, only. It
// supports minimal record types, specifically just the data and end-of-file record types.
package encoding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/oxblood-labs/rv32core/internal/core"
)

const Grammar = `
file  = { line } ;
line  = ':' len addr type data check nl ;
len   = byte ;
addr  = byte byte byte byte ;
type  = byte ;
data  = { byte }
byte  = hex hex ;
hex   = '0' | '1' | '2' | '3' | '4' | '5' | '6' | '7' | '8' | '9'
      | 'a' | 'b' | 'c' | 'd' | 'e' | 'f' | 'A' | 'B' | 'C' | 'D' | 'E' | 'F' ;
nl    = '\n' ;
`

// HexEncoding implements marshalling and unmarshalling of hart binaries as Intel-Hex-style files.
type HexEncoding struct {
	Code []core.ObjectCode
}

func (h *HexEncoding) MarshalText() ([]byte, error) {
	var buf bytes.Buffer

	for i := range h.Code {
		code := h.Code[i]

		var check byte

		_ = buf.WriteByte(':')

		enc := hex.NewEncoder(&buf)

		l := byte(len(code.Code) * 4)
		if _, err := enc.Write([]byte{l}); err != nil {
			return buf.Bytes(), err
		}

		check += l

		var addr [4]byte
		binary.BigEndian.PutUint32(addr[:], uint32(code.Orig))

		if _, err := enc.Write(addr[:]); err != nil {
			return buf.Bytes(), err
		}

		for _, b := range addr {
			check += b
		}

		if _, err := enc.Write([]byte{byte(kindData)}); err != nil {
			return buf.Bytes(), err
		}

		check += byte(kindData)

		var word [4]byte

		for _, w := range code.Code {
			binary.BigEndian.PutUint32(word[:], uint32(w))

			if _, err := enc.Write(word[:]); err != nil {
				return buf.Bytes(), err
			}

			for _, b := range word {
				check += b
			}
		}

		if _, err := enc.Write([]byte{1 + ^check}); err != nil {
			return buf.Bytes(), err
		}

		buf.WriteByte('\n')
	}

	buf.WriteString(":000000000001ff\n")

	return buf.Bytes(), nil
}

func (h *HexEncoding) UnmarshalText(bs []byte) error {
	line := bufio.NewScanner(bytes.NewReader(bs))

	for line.Scan() {
		var (
			rec []byte = line.Bytes() //nolint:stylecheck

			recLen   byte    // Number of bytes in data field; excludes address, type, checksum fields.
			recAddr  uint32  // Record address.
			recKind  kind    // Record type.
			recCheck byte    // Expected checksum.
			check    byte    // Accumulated checksum.
			dec      [4]byte // Decode buffer.
		)

		if len(rec) == 0 {
			break
		} else if token := rec[0]; token == '\n' {
			continue
		} else if token != ':' {
			return fmt.Errorf("%w: line does not start with ':'", errInvalidHex)
		}

		if len(rec) < 1+2+8+2+2 {
			return fmt.Errorf("%w: record too short", errInvalidHex)
		}

		if _, err := hex.Decode(dec[:1], rec[1:3]); err != nil {
			return fmt.Errorf("%w: len:%s", errInvalidHex, err.Error())
		} else {
			recLen = dec[0]
		}

		check += dec[0]

		if _, err := hex.Decode(dec[:4], rec[3:11]); err != nil {
			return fmt.Errorf("%w: addr: %s", errInvalidHex, err.Error())
		} else {
			recAddr = binary.BigEndian.Uint32(dec[:4])
		}

		for _, b := range dec[:4] {
			check += b
		}

		if _, err := hex.Decode(dec[:1], rec[11:13]); err != nil {
			return fmt.Errorf("%w: type: %s", errInvalidHex, err.Error())
		} else {
			recKind = kind(dec[0])
		}

		check += dec[0]

		if _, err := hex.Decode(dec[:1], rec[len(rec)-2:]); err != nil {
			return fmt.Errorf("%w: check: %s", errInvalidHex, err.Error())
		} else {
			recCheck = dec[0]
		}

		switch {
		case recLen%4 != 0:
			return fmt.Errorf("%w: data length not word-aligned", errInvalidHex)
		case recKind == kindData && recLen > 0:
			hexData := make([]byte, recLen)

			if _, err := hex.Decode(hexData, rec[13:13+int(recLen)*2]); err != nil {
				return fmt.Errorf("%w: data: %s", errInvalidHex, err.Error())
			}

			code := make([]core.Word, recLen/4)
			for i := 0; i < len(code); i++ {
				code[i] = core.Word(binary.BigEndian.Uint32(hexData[4*i : 4*i+4]))
			}

			for _, b := range hexData {
				check += b
			}

			check = 1 + ^check
			if check != recCheck {
				return fmt.Errorf("%w: checksum invalid: %02x != %02x",
					errInvalidHex, check, recCheck)
			}

			h.Code = append(h.Code, core.ObjectCode{
				Orig: core.Word(recAddr),
				Code: code,
			})
		case recKind == kindEOF:
			check = 1 + ^check
			if check != recCheck {
				return fmt.Errorf("%w: checksum invalid: %02x != %02x",
					errInvalidHex, check, recCheck)
			}

			return finishUnmarshal(h)
		default:
			return fmt.Errorf("%w: unexpected record type: %d", errInvalidHex, recKind)
		}
	}

	return finishUnmarshal(h)
}

func finishUnmarshal(h *HexEncoding) error {
	if len(h.Code) == 0 {
		return errEmpty
	}

	return nil
}

// kind represents the type of encoded record. Only the subset of record types supported by the
// encoder are supported.
type kind byte

const (
	kindData kind = 0
	kindEOF  kind = 1
)

type decodingError struct{}

func (decodingError) Error() string {
	return "decoding error"
}

func (de *decodingError) Is(err error) bool {
	if de == err {
		return true
	} else if _, ok := err.(*decodingError); ok {
		return true
	} else {
		return false
	}
}

var (
	// ErrDecode is a wrapped error that is returned when decoding fails.
	ErrDecode = &decodingError{}

	errEmpty      = fmt.Errorf("%w: no data decoded", ErrDecode)
	errInvalidHex = fmt.Errorf("%w: invalid encoding", ErrDecode)
)
