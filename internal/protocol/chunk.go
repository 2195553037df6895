package protocol

// Split cuts a payload into chunks of at most size bytes, preserving order.
//
// Binary payloads yield ⌈len/size⌉ chunks (the last may be shorter); an
// empty buffer yields a single empty chunk so the peer still sees a message.
// Text payloads are never split and come back as a single chunk regardless
// of length. Chunks alias the original buffer.
func Split(p Payload, size int) []Payload {
	if size <= 0 {
		size = MaxChunkSize
	}

	if p.kind != KindBinary {
		return []Payload{p}
	}

	n := len(p.data)
	if n == 0 {
		return []Payload{p}
	}

	chunks := make([]Payload, 0, (n+size-1)/size)
	for off := 0; off < n; off += size {
		end := min(off+size, n)
		chunks = append(chunks, Payload{kind: KindBinary, data: p.data[off:end:end]})
	}
	return chunks
}

// ChunkCount returns how many chunks Split would produce.
func ChunkCount(p Payload, size int) int {
	if size <= 0 {
		size = MaxChunkSize
	}
	if p.kind != KindBinary || len(p.data) == 0 {
		return 1
	}
	return (len(p.data) + size - 1) / size
}
