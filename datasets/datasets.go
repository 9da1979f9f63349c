// Package datasets defines the indexed-dataset interface consumed by training
// pipelines, along with generic plumbing to iterate over and transform samples:
// `Iterator`, `Parallel`, and the ready-made image transforms in transforms.go.
//
// Concrete datasets live in sub-packages (e.g. datasets/caltech).
package datasets

import (
	"image"

	"github.com/pkg/errors"
)

// Indexed is a dataset with random access to its samples.
//
// Implementations build their index once at construction and are immutable
// afterwards, so concurrent At calls are safe as long as the underlying
// storage and decoding are.
type Indexed interface {
	// Name identifies the dataset. Used for debugging and pretty-printing.
	Name() string

	// Len returns the total number of samples. It is O(1).
	Len() int

	// At resolves the sample at the given index, in [0, Len()), to a decoded
	// image and its target. It returns an error for an out-of-range index or
	// if reading/decoding the underlying files fails.
	At(index int) (image.Image, Target, error)
}

// Target is the label of one sample. Which fields are populated depends on the
// target types the dataset was constructed with: Category is the 0-based id of
// the sample's category, and Contour, if requested and available, the outline
// annotation of the object in the image.
type Target struct {
	Category int32
	Contour  *Contour
}

// Contour is a point-set outline of an object, a side-channel label some
// datasets carry next to the images. X and Y have the same length.
type Contour struct {
	X, Y []float64
}

// Len returns the number of points in the contour.
func (c *Contour) Len() int { return len(c.X) }

// ImageTransform is an optional function applied to the decoded image before a
// sample is returned, e.g. a resize or an augmentation.
type ImageTransform func(image.Image) image.Image

// TargetTransform is an optional function applied to the sample target before
// it is returned.
type TargetTransform func(Target) Target

// VerifyStrArg checks that value is one of the allowed values for the named
// argument, returning an error naming the value and the allowed set otherwise.
func VerifyStrArg(value, name string, allowed []string) error {
	for _, v := range allowed {
		if value == v {
			return nil
		}
	}
	return errors.Errorf("invalid value %q for argument %s: valid values are %v", value, name, allowed)
}
