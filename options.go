package listfile

// Options configures a Writer (and, for Append, the Reader-side validation
// a reopened writer performs).
type Options struct {
	// BlockSizeMultiplier sets the on-disk block size to 64KiB * M, M in
	// [1,255]. Zero is treated as 1.
	BlockSizeMultiplier uint8

	// UseCompression enables per-block compression.
	UseCompression bool

	// CompressMethod selects the algorithm used when UseCompression is set.
	// Defaults to LZ4Compression.
	CompressMethod Method

	// CompressLevel is passed to the selected compressor; methods that don't
	// support levels ignore it.
	CompressLevel int

	// Append opens an existing file and continues writing after its last
	// record instead of truncating it. The file's existing header is
	// re-validated against these options rather than rewritten.
	Append bool
}

func (o Options) multiplier() uint8 {
	if o.BlockSizeMultiplier == 0 {
		return 1
	}
	return o.BlockSizeMultiplier
}

func (o Options) method() Method {
	if o.CompressMethod == NoCompression && o.UseCompression {
		return LZ4Compression
	}
	return o.CompressMethod
}
