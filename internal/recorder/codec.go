package recorder

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec is the record encoding of an export file.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// Compression is applied on top of the codec.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Format describes an export file.
type Format struct {
	Codec       Codec
	Compression Compression
}

// FormatFromPath infers the format from a file name: a trailing .zst means
// zstd, then .msgpack or .mp means msgpack, anything else is JSON.
// "frames.msgpack.zst" is zstd-compressed msgpack.
func FormatFromPath(path string) Format {
	f := Format{Codec: CodecJSON, Compression: CompressionNone}
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".zst") {
		f.Compression = CompressionZstd
		name = strings.TrimSuffix(name, ".zst")
	}
	switch filepath.Ext(name) {
	case ".msgpack", ".mp":
		f.Codec = CodecMsgpack
	}
	return f
}

func (f Format) String() string {
	if f.Compression == CompressionZstd {
		return string(f.Codec) + "+zstd"
	}
	return string(f.Codec)
}

// Validate rejects unknown codecs and compressions.
func (f Format) Validate() error {
	switch f.Codec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("unknown codec %q", f.Codec)
	}
	switch f.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return fmt.Errorf("unknown compression %q", f.Compression)
	}
	return nil
}

// Ext is the file extension FormatFromPath maps back to f.
func (f Format) Ext() string {
	ext := ".json"
	if f.Codec == CodecMsgpack {
		ext = ".msgpack"
	}
	if f.Compression == CompressionZstd {
		ext += ".zst"
	}
	return ext
}

// ContentType is the media type of an export in format f.
func (f Format) ContentType() string {
	switch {
	case f.Compression == CompressionZstd:
		return "application/zstd"
	case f.Codec == CodecMsgpack:
		return "application/msgpack"
	default:
		return "application/json"
	}
}

func (f Format) encode(w io.Writer, records []FrameRecord) error {
	if f.Compression == CompressionZstd {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		if err := f.encodeCodec(zw, records); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	}
	return f.encodeCodec(w, records)
}

func (f Format) encodeCodec(w io.Writer, records []FrameRecord) error {
	switch f.Codec {
	case CodecMsgpack:
		return msgpack.NewEncoder(w).Encode(records)
	case CodecJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	default:
		return fmt.Errorf("unknown codec %q", f.Codec)
	}
}

func (f Format) decode(r io.Reader) ([]FrameRecord, error) {
	if f.Compression == CompressionZstd {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	var records []FrameRecord
	switch f.Codec {
	case CodecMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&records); err != nil {
			return nil, err
		}
	case CodecJSON, "":
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown codec %q", f.Codec)
	}
	return records, nil
}
