package resource

import (
	"math"

	"github.com/pkg/errors"
)

// Format identifies the on-disk container variant.
type Format int

const (
	Classic Format = iota
	Rez
	Extended
)

// The rez and extended formats are self-describing; classic is the
// fallback because it carries no signature.
var (
	rezSignature      = [4]byte{'B', 'R', 'G', 'R'}
	extendedSignature = [4]byte{'R', 'S', 'R', 'X'}
)

func (f Format) String() string {
	switch f {
	case Rez:
		return "rez"
	case Extended:
		return "extended"
	default:
		return "classic"
	}
}

func (f Format) Extension() string {
	switch f {
	case Rez:
		return ".rez"
	case Extended:
		return ".rsrx"
	default:
		return ".rsrc"
	}
}

// MinID and MaxID bound the representable resource id of the format.
func (f Format) MinID() int {
	if f == Extended {
		return math.MinInt32
	}
	return math.MinInt16
}

func (f Format) MaxID() int {
	if f == Extended {
		return math.MaxInt32
	}
	return math.MaxInt16
}

// DetectFormat must run before dispatch: only rez and extended announce
// themselves, anything else is treated as classic.
func DetectFormat(b []byte) Format {
	if len(b) >= 4 {
		var sig [4]byte
		copy(sig[:], b)
		switch sig {
		case rezSignature:
			return Rez
		case extendedSignature:
			return Extended
		}
	}
	return Classic
}

// ReadFile parses a whole container into a File. Structural inconsistency
// of any kind is reported as a single wrapped ErrInvalidFormat.
func ReadFile(b []byte) (*File, error) {
	var f *File
	var err error
	switch DetectFormat(b) {
	case Rez:
		f, err = readRez(b)
	case Extended:
		f, err = readExtended(b)
	default:
		f, err = readClassic(b)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidFormat, "%v", err)
	}
	return f, nil
}

// Write serializes the container back to bytes in the file's format.
func (f *File) Write() ([]byte, error) {
	if err := f.checkWritable(); err != nil {
		return nil, err
	}
	switch f.Format {
	case Rez:
		return f.writeRez()
	case Extended:
		return f.writeExtended()
	default:
		return f.writeClassic()
	}
}

func (f *File) checkWritable() error {
	for _, t := range f.typeOrder {
		for _, r := range f.resources[t] {
			if r.ID < f.Format.MinID() || r.ID > f.Format.MaxID() {
				return errors.Wrapf(ErrInvalidID, "%v %d in %v format", t, r.ID, f.Format)
			}
		}
	}
	if f.Format != Extended {
		for t, attrs := range f.TypeAttributes {
			if len(attrs) > 0 {
				return errors.Wrapf(ErrTypeAttributesNotSupported, "type %v in %v format", t, f.Format)
			}
		}
	}
	return nil
}
