package field

import (
	"fmt"
	"image"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// sliceName matches files written by the preprocessing step, e.g. uv_2017080112.png.
var sliceName = regexp.MustCompile(`^uv_(\d{10})\.(png|webp|tif|tiff|bmp)$`)

// sliceLayout is the timestamp layout embedded in slice file names (UTC hour).
const sliceLayout = "2006010215"

// ParseSliceTime extracts the timestamp from a slice file name.
func ParseSliceTime(name string) (time.Time, bool) {
	m := sliceName.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(sliceLayout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Decode reads an image whose red channel carries U and green channel carries V.
func Decode(r io.Reader, rangeMPS float64) (*Field, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding wind image: %w", err)
	}
	b := img.Bounds()
	f, err := New(b.Dx(), b.Dy(), rangeMPS)
	if err != nil {
		return nil, err
	}

	switch m := img.(type) {
	case *image.NRGBA:
		fillFromPix(f, m.Pix, m.Stride)
	case *image.RGBA:
		// Slices are written fully opaque, so premultiplied and straight alpha agree
		fillFromPix(f, m.Pix, m.Stride)
	default:
		for y := 0; y < f.H; y++ {
			for x := 0; x < f.W; x++ {
				cr, cg, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				i := f.Index(x, y)
				f.U[i] = float32(cr) / 0xffff
				f.V[i] = float32(cg) / 0xffff
			}
		}
	}
	return f, nil
}

func fillFromPix(f *Field, pix []uint8, stride int) {
	for y := 0; y < f.H; y++ {
		row := pix[y*stride:]
		for x := 0; x < f.W; x++ {
			i := f.Index(x, y)
			f.U[i] = float32(row[x*4]) / 255
			f.V[i] = float32(row[x*4+1]) / 255
		}
	}
}

// LoadFile decodes a single slice and stamps it with the time from its name.
func LoadFile(path string, rangeMPS float64) (*Field, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wind slice: %w", err)
	}
	defer fh.Close()

	f, err := Decode(fh, rangeMPS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if t, ok := ParseSliceTime(path); ok {
		f.Time = t
	}
	return f, nil
}

// LoadDir loads every uv_YYYYMMDDHH slice in dir into a time-ordered sequence.
func LoadDir(dir string, rangeMPS float64) (*Sequence, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading slice directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := ParseSliceTime(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no uv_YYYYMMDDHH slices in %s", ErrEmpty, dir)
	}
	// Timestamps are fixed-width, so lexical order is time order
	sort.Strings(names)

	slices := make([]*Field, 0, len(names))
	for _, name := range names {
		f, err := LoadFile(filepath.Join(dir, name), rangeMPS)
		if err != nil {
			return nil, err
		}
		slices = append(slices, f)
	}
	return NewSequence(slices)
}
