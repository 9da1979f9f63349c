package caltech

import (
	"fmt"
	"image"
	"path"

	"github.com/JonasKlotz/vision/datasets"
	"github.com/JonasKlotz/vision/pkg/support/fsutil"
	"github.com/pkg/errors"
)

const (
	// Caltech256SubDir is the directory under the base directory holding the dataset.
	Caltech256SubDir = "caltech256"

	// Caltech256ImagesDir is the top-level image directory of the extracted dataset.
	Caltech256ImagesDir = "256_ObjectCategories"
)

// NumCategories256 is the number of object categories of Caltech 256
// (including the clutter category, which this dataset keeps).
const NumCategories256 = 257

// Caltech256 is a datasets.Indexed over the Caltech 256 dataset: ~30k images
// in 257 categories. Targets are always the category id.
//
// The index is built once at construction by scanning the category directories
// and is immutable afterwards.
type Caltech256 struct {
	root string

	transform       datasets.ImageTransform
	targetTransform datasets.TargetTransform

	categories []string

	// labels[i] is the 0-based category id of sample i; ordinals[i] its
	// 1-based position within the category, matching the on-disk numbering.
	labels   []int32
	ordinals []int32
}

var _ datasets.Indexed = &Caltech256{}

// NewCaltech256 builds the index of the Caltech 256 dataset stored under
// baseDir (in the "caltech256" subdirectory).
//
// It fails if the dataset is not present -- use DownloadCaltech256 first to
// fetch it.
func NewCaltech256(baseDir string) (*Caltech256, error) {
	ds := &Caltech256{
		root: path.Join(fsutil.MustReplaceTildeInDir(baseDir), Caltech256SubDir),
	}
	imagesRoot := path.Join(ds.root, Caltech256ImagesDir)
	if !fsutil.MustFileExists(imagesRoot) {
		return nil, errors.Errorf(
			"Caltech 256 dataset not found or corrupted in %q: use caltech.DownloadCaltech256 to download it",
			ds.root)
	}
	var err error
	ds.categories, err = listCategories(imagesRoot)
	if err != nil {
		return nil, err
	}
	for ii, c := range ds.categories {
		// Category directories carry the occasional non-image file, count only ".jpg".
		n, err := countSamples(path.Join(imagesRoot, c), ".jpg")
		if err != nil {
			return nil, err
		}
		for ordinal := 1; ordinal <= n; ordinal++ {
			ds.labels = append(ds.labels, int32(ii))
			ds.ordinals = append(ds.ordinals, int32(ordinal))
		}
	}
	return ds, nil
}

// WithTransform sets a transform applied to the image of every sample returned
// by At. It returns the updated dataset, so calls can be cascaded.
func (ds *Caltech256) WithTransform(transform datasets.ImageTransform) *Caltech256 {
	ds.transform = transform
	return ds
}

// WithTargetTransform sets a transform applied to the target of every sample
// returned by At. It returns the updated dataset, so calls can be cascaded.
func (ds *Caltech256) WithTargetTransform(transform datasets.TargetTransform) *Caltech256 {
	ds.targetTransform = transform
	return ds
}

// Name implements datasets.Indexed.
func (ds *Caltech256) Name() string { return "Caltech 256" }

// Len implements datasets.Indexed. It returns the total number of samples.
func (ds *Caltech256) Len() int { return len(ds.labels) }

// Categories returns the sorted category names.
// The returned slice is owned by the dataset and must not be modified.
func (ds *Caltech256) Categories() []string { return ds.categories }

// ImagePath returns the path of the image of sample index. Caltech 256 file
// names embed the 1-based category number next to the ordinal.
func (ds *Caltech256) ImagePath(index int) string {
	return path.Join(ds.root, Caltech256ImagesDir, ds.categories[ds.labels[index]],
		fmt.Sprintf("%03d_%04d.jpg", ds.labels[index]+1, ds.ordinals[index]))
}

// At implements datasets.Indexed. It decodes the image of the given sample,
// returns its category id as the target, and applies the configured
// transforms, if any.
func (ds *Caltech256) At(index int) (img image.Image, target datasets.Target, err error) {
	if index < 0 || index >= ds.Len() {
		err = errors.Errorf("sample index %d invalid: there are only %d samples", index, ds.Len())
		return
	}
	img, err = readImage(ds.ImagePath(index))
	if err != nil {
		return
	}
	target.Category = ds.labels[index]
	if ds.transform != nil {
		img = ds.transform(img)
	}
	if ds.targetTransform != nil {
		target = ds.targetTransform(target)
	}
	return
}
