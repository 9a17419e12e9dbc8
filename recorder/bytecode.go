// Package recorder implements the immediate recorder (§4.3): inside a
// pass's ExecuteImmediate, it records a compact bytecode stream of simple
// GPU operations while simultaneously accumulating the subresource
// rectangles each operation touched, so Finalize can hand back both the
// bytecode and the minimal ResourceRequirement list in one pass.
package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Opcode tags one bytecode operation.
type Opcode uint8

const (
	OpCopyBufferRegion Opcode = iota
	OpCopyTextureRegion
	OpClearRenderTarget
	OpClearDepthStencil
	OpClearUAVFloat
	OpClearUAVUint
	OpCopyTextureToBuffer
	OpCopyBufferToTexture
)

func (op Opcode) String() string {
	switch op {
	case OpCopyBufferRegion:
		return "copy-buffer-region"
	case OpCopyTextureRegion:
		return "copy-texture-region"
	case OpClearRenderTarget:
		return "clear-render-target"
	case OpClearDepthStencil:
		return "clear-depth-stencil"
	case OpClearUAVFloat:
		return "clear-uav-float"
	case OpClearUAVUint:
		return "clear-uav-uint"
	case OpCopyTextureToBuffer:
		return "copy-texture-to-buffer"
	case OpCopyBufferToTexture:
		return "copy-buffer-to-texture"
	default:
		return "unknown"
	}
}

// ErrTruncatedStream is returned by Reader when a payload runs past the end
// of the bytecode stream.
var ErrTruncatedStream = errors.New("recorder: truncated bytecode stream")

// ErrUnknownOpcode is returned by Reader when a tag byte does not match any
// known Opcode.
var ErrUnknownOpcode = errors.New("recorder: unknown opcode")

// Payload shapes. Every field is fixed-width so the payload can be written
// and read as a flat POD block; handle references are indices into the
// Bytecode's handle table rather than the handles themselves, keeping the
// stream free of pointers.
type copyBufferRegionPayload struct {
	SrcHandle uint32
	DstHandle uint32
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type copyTextureRegionPayload struct {
	SrcHandle                  uint32
	DstHandle                  uint32
	SrcMip, SrcSlice           uint32
	DstMip, DstSlice           uint32
	X, Y, Z                    uint32
	Width, Height, Depth       uint32
}

type clearPayload struct {
	Handle uint32
	Mip    uint32
	Slice  uint32
	Value  [4]uint32 // float32 bits, or raw uint32 for the UAVUint variant
}

type textureBufferCopyPayload struct {
	TextureHandle        uint32
	BufferHandle         uint32
	Mip, Slice           uint32
	BufferOffset         uint64
	Width, Height, Depth uint32
}

// align8 rounds n up to the next 8-byte boundary — the widest field in any
// payload above is a uint64, so 8 bytes covers every payload's alignment and
// is what the reader restores between the 1-byte opcode tag and the payload.
func align8(n int) int { return (n + 7) &^ 7 }

// Bytecode is the finalized, immutable output of a Recorder: a tagged byte
// stream plus the table of handles the stream's index fields reference.
type Bytecode struct {
	data    []byte
	handles []any
}

// HandleAt returns the handle registered at index i. Readers type-assert it
// back to registry.Handle[*resource.Resource] (kept as `any` here so this
// package does not need to import resource, avoiding an import cycle with
// packages built on top of recorder).
func (b *Bytecode) HandleAt(i uint32) any { return b.handles[int(i)] }

// Reader walks a Bytecode's opcode stream in order.
type Reader struct {
	bc  *Bytecode
	pos int
}

// NewReader creates a Reader positioned at the start of bc's stream.
func NewReader(bc *Bytecode) *Reader { return &Reader{bc: bc} }

// Done reports whether the stream has been fully consumed.
func (r *Reader) Done() bool { return r.pos >= len(r.bc.data) }

// ReadOp reads the next opcode tag and advances past its alignment padding,
// leaving the reader positioned at the payload.
func (r *Reader) ReadOp() (Opcode, error) {
	if r.pos >= len(r.bc.data) {
		return 0, io.EOF
	}
	op := Opcode(r.bc.data[r.pos])
	if op > OpCopyBufferToTexture {
		return 0, fmt.Errorf("%w: tag %d", ErrUnknownOpcode, op)
	}
	r.pos = align8(r.pos + 1)
	return op, nil
}

func (r *Reader) readPayload(payload any) error {
	size := binary.Size(payload)
	if size < 0 {
		panic(fmt.Sprintf("recorder: payload type %T has no fixed size", payload))
	}
	if r.pos+size > len(r.bc.data) {
		return ErrTruncatedStream
	}
	buf := bytes.NewReader(r.bc.data[r.pos : r.pos+size])
	if err := binary.Read(buf, binary.LittleEndian, payload); err != nil {
		return err
	}
	r.pos = align8(r.pos + size)
	return nil
}

// ReadCopyBufferRegion decodes the payload following an OpCopyBufferRegion tag.
func (r *Reader) ReadCopyBufferRegion() (srcHandle, dstHandle uint32, srcOffset, dstOffset, size uint64, err error) {
	var p copyBufferRegionPayload
	if err = r.readPayload(&p); err != nil {
		return
	}
	return p.SrcHandle, p.DstHandle, p.SrcOffset, p.DstOffset, p.Size, nil
}

// ReadCopyTextureRegion decodes the payload following an OpCopyTextureRegion tag.
func (r *Reader) ReadCopyTextureRegion() (copyTextureRegionPayload, error) {
	var p copyTextureRegionPayload
	err := r.readPayload(&p)
	return p, err
}

// ReadClear decodes the payload following any of the four clear opcodes.
func (r *Reader) ReadClear() (clearPayload, error) {
	var p clearPayload
	err := r.readPayload(&p)
	return p, err
}

// ReadTextureBufferCopy decodes the payload following OpCopyTextureToBuffer
// or OpCopyBufferToTexture.
func (r *Reader) ReadTextureBufferCopy() (textureBufferCopyPayload, error) {
	var p textureBufferCopyPayload
	err := r.readPayload(&p)
	return p, err
}

// builder accumulates bytecode bytes and the handle table during recording.
type builder struct {
	buf     []byte
	handles []any
}

func (b *builder) writeOp(op Opcode, payload any) {
	b.buf = append(b.buf, byte(op))
	pad := align8(len(b.buf)) - len(b.buf)
	b.buf = append(b.buf, make([]byte, pad)...)

	w := bytes.NewBuffer(nil)
	if err := binary.Write(w, binary.LittleEndian, payload); err != nil {
		// Every payload type above is fixed-width; a failure here means a
		// payload shape changed without updating this package.
		panic(fmt.Sprintf("recorder: failed to encode %T: %v", payload, err))
	}
	b.buf = append(b.buf, w.Bytes()...)
}

func (b *builder) finish() *Bytecode {
	return &Bytecode{data: b.buf, handles: b.handles}
}
