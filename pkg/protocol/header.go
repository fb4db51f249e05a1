package protocol

import (
	"encoding/binary"
	"errors"
)

// Fixed header layout (64 bytes) for fast parsing over any channel.
// All integer fields are little-endian.
//
//	0  ..1   Magic   'C''F' (0x4643)
//	2        Version u8
//	3        Type    u8
//	4  ..7   Flags   u32
//	8  ..11  PayloadLen u32
//	12 ..27  CorrelationID [16]byte
//	28 ..35  WorkflowID u64
//	36 ..39  Step u32
//	40 ..43  Attempt u32
//	44 ..51  SentUnixMs i64
//	52 ..53  FragTotal u16
//	54 ..55  FragIndex u16
//	56 ..63  Reserved
const (
	headerSize = 64
	magicWord  = uint16(0x4643) // 'C''F'
)

// HeaderSize is the encoded size of a Header.
const HeaderSize = headerSize

var (
	ErrShortHeader = errors.New("short header")
	ErrBadMagic    = errors.New("bad magic")
)

// Header describes metadata for an envelope.
type Header struct {
	Version     uint8
	Type        uint8
	Flags       uint32
	PayloadLen  uint32
	Correlation [16]byte
	WorkflowID  uint64
	Step        uint32
	Attempt     uint32
	SentUnixMs  int64
	FragTotal   uint16
	FragIndex   uint16
}

// MarshalBinary encodes header to 64-byte buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint16(buf[0:2], magicWord)
	buf[2] = h.Version
	buf[3] = h.Type
	binary.LittleEndian.PutUint32(buf[4:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.PayloadLen)
	copy(buf[12:28], h.Correlation[:])
	binary.LittleEndian.PutUint64(buf[28:36], h.WorkflowID)
	binary.LittleEndian.PutUint32(buf[36:40], h.Step)
	binary.LittleEndian.PutUint32(buf[40:44], h.Attempt)
	binary.LittleEndian.PutUint64(buf[44:52], uint64(h.SentUnixMs))
	binary.LittleEndian.PutUint16(buf[52:54], h.FragTotal)
	binary.LittleEndian.PutUint16(buf[54:56], h.FragIndex)
	// 56..63 reserved stays zero
	return buf, nil
}

// UnmarshalBinary decodes header from 64-byte buffer.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < headerSize {
		return ErrShortHeader
	}
	if binary.LittleEndian.Uint16(buf[0:2]) != magicWord {
		return ErrBadMagic
	}
	h.Version = buf[2]
	h.Type = buf[3]
	h.Flags = binary.LittleEndian.Uint32(buf[4:8])
	h.PayloadLen = binary.LittleEndian.Uint32(buf[8:12])
	copy(h.Correlation[:], buf[12:28])
	h.WorkflowID = binary.LittleEndian.Uint64(buf[28:36])
	h.Step = binary.LittleEndian.Uint32(buf[36:40])
	h.Attempt = binary.LittleEndian.Uint32(buf[40:44])
	h.SentUnixMs = int64(binary.LittleEndian.Uint64(buf[44:52]))
	h.FragTotal = binary.LittleEndian.Uint16(buf[52:54])
	h.FragIndex = binary.LittleEndian.Uint16(buf[54:56])
	return nil
}
