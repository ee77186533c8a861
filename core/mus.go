package core

import (
	"time"

	com "github.com/mus-format/common-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// Hand-composed MUS serializers for the persisted domain types. The
// storage layer depends on these via storage.Marshal*/Unmarshal*.

// IDMUS serializes an ID.
var IDMUS = idMUS{}

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

// DocumentMUS serializes a Document.
var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = IDMUS.Marshal(d.Id, bs)
	n += ord.String.Marshal(d.Source, bs[n:])
	n += ord.String.Marshal(string(d.Modality), bs[n:])
	n += ord.String.Marshal(d.Title, bs[n:])
	n += marshalStringSlice(d.Tags, bs[n:])
	n += ord.String.Marshal(d.ContentHash, bs[n:])
	n += ord.String.Marshal(d.Text, bs[n:])
	n += marshalTime(d.FetchedAt, bs[n:])
	n += varint.Uint64.Marshal(d.Version, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	if d.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if d.Source, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	var modality string
	if modality, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	d.Modality = Modality(modality)
	if d.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Tags, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.ContentHash, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.FetchedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	if d.Version, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return d, n + n1, err
	}
	n += n1
	return d, n, nil
}

func (documentMUS) Size(d Document) (size int) {
	size = IDMUS.Size(d.Id)
	size += ord.String.Size(d.Source)
	size += ord.String.Size(string(d.Modality))
	size += ord.String.Size(d.Title)
	size += sizeStringSlice(d.Tags)
	size += ord.String.Size(d.ContentHash)
	size += ord.String.Size(d.Text)
	size += sizeTime(d.FetchedAt)
	size += varint.Uint64.Size(d.Version)
	return size
}

// SnapshotMUS serializes a Snapshot.
var SnapshotMUS = snapshotMUS{}

type snapshotMUS struct{}

func (snapshotMUS) Marshal(s Snapshot, bs []byte) (n int) {
	n = IDMUS.Marshal(s.Id, bs)
	n += ord.String.Marshal(string(s.Modality), bs[n:])
	n += marshalTime(s.CreatedAt, bs[n:])
	n += marshalTime(s.ArchivedAt, bs[n:])
	n += varint.Int.Marshal(len(s.Documents), bs[n:])
	for _, key := range s.Documents {
		n += IDMUS.Marshal(key.DocumentId, bs[n:])
		n += varint.Uint64.Marshal(key.Version, bs[n:])
	}
	return n
}

func (snapshotMUS) Unmarshal(bs []byte) (s Snapshot, n int, err error) {
	var n1 int
	if s.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	var modality string
	if modality, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + n1, err
	}
	n += n1
	s.Modality = Modality(modality)
	if s.CreatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return s, n + n1, err
	}
	n += n1
	if s.ArchivedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return s, n + n1, err
	}
	n += n1
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return s, n + n1, err
	}
	n += n1
	if count < 0 {
		return s, n, com.ErrNegativeLength
	}
	if count > 0 {
		s.Documents = make([]DocumentKey, count)
		for i := 0; i < count; i++ {
			if s.Documents[i].DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
				return s, n + n1, err
			}
			n += n1
			if s.Documents[i].Version, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
				return s, n + n1, err
			}
			n += n1
		}
	}
	return s, n, nil
}

func (snapshotMUS) Size(s Snapshot) (size int) {
	size = IDMUS.Size(s.Id)
	size += ord.String.Size(string(s.Modality))
	size += sizeTime(s.CreatedAt)
	size += sizeTime(s.ArchivedAt)
	size += varint.Int.Size(len(s.Documents))
	for _, key := range s.Documents {
		size += IDMUS.Size(key.DocumentId)
		size += varint.Uint64.Size(key.Version)
	}
	return size
}

// ChunkMUS serializes a Chunk.
var ChunkMUS = chunkMUS{}

type chunkMUS struct{}

func (chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = IDMUS.Marshal(c.Id, bs)
	n += IDMUS.Marshal(c.DocumentId, bs[n:])
	n += varint.Uint64.Marshal(c.DocumentVersion, bs[n:])
	n += ord.String.Marshal(string(c.Modality), bs[n:])
	n += varint.Int.Marshal(c.SequenceIndex, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += ord.String.Marshal(c.Topic, bs[n:])
	n += ord.String.Marshal(c.Summary, bs[n:])
	n += varint.Int.Marshal(len(c.Entities), bs[n:])
	for _, e := range c.Entities {
		n += ord.String.Marshal(e.Text, bs[n:])
		n += ord.String.Marshal(e.Type, bs[n:])
	}
	n += marshalStringSlice(c.KeyPhrases, bs[n:])
	n += varint.Uint64.Marshal(uint64(c.Status.Topic), bs[n:])
	n += varint.Uint64.Marshal(uint64(c.Status.Summary), bs[n:])
	n += varint.Uint64.Marshal(uint64(c.Status.Entities), bs[n:])
	n += varint.Uint64.Marshal(uint64(c.Status.KeyPhrases), bs[n:])
	n += ord.Bool.Marshal(c.Stale, bs[n:])
	n += marshalTime(c.InsertedAt, bs[n:])
	n += marshalTime(c.UpdatedAt, bs[n:])
	return n
}

func (chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var n1 int
	if c.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if c.DocumentId, n1, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.DocumentVersion, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	var modality string
	if modality, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	c.Modality = Modality(modality)
	if c.SequenceIndex, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Topic, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.Summary, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	var count int
	if count, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if count < 0 {
		return c, n, com.ErrNegativeLength
	}
	if count > 0 {
		c.Entities = make([]Entity, count)
		for i := 0; i < count; i++ {
			if c.Entities[i].Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return c, n + n1, err
			}
			n += n1
			if c.Entities[i].Type, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
				return c, n + n1, err
			}
			n += n1
		}
	}
	if c.KeyPhrases, n1, err = unmarshalStringSlice(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	statuses := [4]*StageStatus{
		&c.Status.Topic, &c.Status.Summary, &c.Status.Entities, &c.Status.KeyPhrases,
	}
	for _, status := range statuses {
		var v uint64
		if v, n1, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
			return c, n + n1, err
		}
		n += n1
		*status = StageStatus(v)
	}
	if c.Stale, n1, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.InsertedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	if c.UpdatedAt, n1, err = unmarshalTime(bs[n:]); err != nil {
		return c, n + n1, err
	}
	n += n1
	return c, n, nil
}

func (chunkMUS) Size(c Chunk) (size int) {
	size = IDMUS.Size(c.Id)
	size += IDMUS.Size(c.DocumentId)
	size += varint.Uint64.Size(c.DocumentVersion)
	size += ord.String.Size(string(c.Modality))
	size += varint.Int.Size(c.SequenceIndex)
	size += ord.String.Size(c.Text)
	size += ord.String.Size(c.Topic)
	size += ord.String.Size(c.Summary)
	size += varint.Int.Size(len(c.Entities))
	for _, e := range c.Entities {
		size += ord.String.Size(e.Text)
		size += ord.String.Size(e.Type)
	}
	size += sizeStringSlice(c.KeyPhrases)
	size += varint.Uint64.Size(uint64(c.Status.Topic))
	size += varint.Uint64.Size(uint64(c.Status.Summary))
	size += varint.Uint64.Size(uint64(c.Status.Entities))
	size += varint.Uint64.Size(uint64(c.Status.KeyPhrases))
	size += ord.Bool.Size(c.Stale)
	size += sizeTime(c.InsertedAt)
	size += sizeTime(c.UpdatedAt)
	return size
}

// Timestamps are stored as Unix microseconds. The zero time is encoded
// as 0 so a never-archived snapshot round-trips as zero.

func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}

func marshalStringSlice(ss []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(ss), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) (ss []string, n int, err error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil || count == 0 {
		return nil, n, err
	}
	if count < 0 {
		return nil, n, com.ErrNegativeLength
	}
	ss = make([]string, count)
	var n1 int
	for i := 0; i < count; i++ {
		if ss[i], n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return ss, n + n1, err
		}
		n += n1
	}
	return ss, n, nil
}

func sizeStringSlice(ss []string) (size int) {
	size = varint.Int.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}
