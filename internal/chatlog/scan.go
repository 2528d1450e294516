package chatlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// WholeFile is the Locator sub-index for files that hold a single
// conversation rather than an array of them.
const WholeFile = -1

// Locator points at one conversation inside a source file so it can be
// re-loaded on demand.
type Locator struct {
	Path     string
	SubIndex int // position within a container file, WholeFile otherwise
}

func (l Locator) String() string {
	if l.SubIndex == WholeFile {
		return l.Path
	}

	return fmt.Sprintf("%s#%d", l.Path, l.SubIndex)
}

// RecordKey is the cheap identity extracted during the scan pass: enough to
// decide processing order without loading message bodies.
type RecordKey struct {
	ID        string
	Title     string
	UpdatedAt float64
	Loc       Locator
}

// scanEntry mirrors rawConversation but decodes only identity fields, so a
// container scan never materializes message mappings.
type scanEntry struct {
	ID         string  `json:"id"`
	ConvID     string  `json:"conversation_id"`
	Title      string  `json:"title"`
	UpdateTime float64 `json:"update_time"`
}

func (e *scanEntry) key(loc Locator) (RecordKey, error) {
	id := e.ID
	if id == "" {
		id = e.ConvID
	}

	if id == "" {
		return RecordKey{}, ErrMissingID
	}

	if e.UpdateTime == 0 {
		return RecordKey{}, ErrMissingUpdateTime
	}

	return RecordKey{ID: id, Title: e.Title, UpdatedAt: e.UpdateTime, Loc: loc}, nil
}

// ScanKeys streams the identity fields of every conversation in the file.
// A container file yields one key per element with its position as the sub
// index; a single-object file yields one key with SubIndex == WholeFile.
// Elements whose key cannot be extracted are reported through skip and the
// scan continues; only an unreadable or structurally broken file is an
// error.
func ScanKeys(path string, skip func(loc Locator, reason error)) ([]RecordKey, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}

	defer func() { _ = file.Close() }()

	reader := bufio.NewReader(file)

	container, err := isContainer(reader)
	if err != nil {
		return nil, fmt.Errorf("reading source file %s: %w", path, err)
	}

	if !container {
		return scanSingle(reader, path, skip)
	}

	return scanContainer(reader, path, skip)
}

// isContainer peeks at the first non-space byte: '[' means a bulk
// conversations.json array.
func isContainer(reader *bufio.Reader) (bool, error) {
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return false, err
		}

		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			if err := reader.UnreadByte(); err != nil {
				return false, err
			}

			return b == '[', nil
		}
	}
}

func scanSingle(reader io.Reader, path string, skip func(Locator, error)) ([]RecordKey, error) {
	loc := Locator{Path: path, SubIndex: WholeFile}

	var entry scanEntry

	err := json.NewDecoder(reader).Decode(&entry)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	key, err := entry.key(loc)
	if err != nil {
		skip(loc, err)

		return nil, nil
	}

	return []RecordKey{key}, nil
}

func scanContainer(reader io.Reader, path string, skip func(Locator, error)) ([]RecordKey, error) {
	decoder := json.NewDecoder(reader)

	// consume the opening '['
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	var keys []RecordKey

	for idx := 0; decoder.More(); idx++ {
		loc := Locator{Path: path, SubIndex: idx}

		var entry scanEntry

		err := decoder.Decode(&entry)
		if err != nil {
			return nil, fmt.Errorf("decoding %s element %d: %w", path, idx, err)
		}

		key, err := entry.key(loc)
		if err != nil {
			skip(loc, err)

			continue
		}

		keys = append(keys, key)
	}

	return keys, nil
}

// ErrSubIndexOutOfRange reports a Locator pointing past the end of its
// container file. Happens when a file shrank between scan and load.
var ErrSubIndexOutOfRange = errors.New("locator sub-index out of range")

// Load re-reads the source file and parses the full conversation the
// locator points at. Container files are streamed up to the wanted element;
// earlier elements are decoded as raw bytes and discarded.
func Load(loc Locator) (*Conversation, error) {
	file, err := os.Open(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}

	defer func() { _ = file.Close() }()

	if loc.SubIndex == WholeFile {
		data, err := io.ReadAll(bufio.NewReader(file))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", loc.Path, err)
		}

		return ParseConversation(data)
	}

	decoder := json.NewDecoder(bufio.NewReader(file))

	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", loc.Path, err)
	}

	for idx := 0; decoder.More(); idx++ {
		var raw json.RawMessage

		err := decoder.Decode(&raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s element %d: %w", loc.Path, idx, err)
		}

		if idx == loc.SubIndex {
			return ParseConversation(raw)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrSubIndexOutOfRange, loc)
}
