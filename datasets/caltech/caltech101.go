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
	// Caltech101SubDir is the directory under the base directory holding the dataset.
	Caltech101SubDir = "caltech101"

	// Caltech101ImagesDir is the top-level image directory of the extracted dataset.
	Caltech101ImagesDir = "101_ObjectCategories"

	// Caltech101AnnotationsDir is the top-level annotations directory, parallel
	// to the image directory but with a partially different category naming.
	Caltech101AnnotationsDir = "Annotations"

	// BackgroundCategory is the clutter folder shipped with Caltech 101.
	// It is not a real class and is removed from the category list.
	BackgroundCategory = "BACKGROUND_Google"
)

// NumCategories101 is the number of object categories of Caltech 101, after the
// background clutter folder is removed -- hence the name of the dataset.
const NumCategories101 = 101

// annotationNameMap remaps the category folder names of "101_ObjectCategories"
// to their counterparts under "Annotations". For some reason the two do not
// always match; categories not listed here use the same name in both.
var annotationNameMap = map[string]string{
	"Faces":      "Faces_2",
	"Faces_easy": "Faces_3",
	"Motorbikes": "Motorbikes_16",
	"airplanes":  "Airplanes_Side_2",
}

// Caltech101 is a datasets.Indexed over the Caltech 101 dataset: ~9k images in
// 101 categories, plus per-image outline annotations.
//
// The index is built once at construction by scanning the category directories
// and is immutable afterwards.
type Caltech101 struct {
	root        string
	targetTypes []TargetType

	wantCategory, wantAnnotation bool

	transform       datasets.ImageTransform
	targetTransform datasets.TargetTransform

	// ContourReader loads the outline stored in an annotation ".mat" file.
	// It is set to ReadContour when the Annotation target type is requested,
	// and can be replaced before the first At call, e.g. for testing.
	ContourReader func(filePath string) (*datasets.Contour, error)

	categories           []string
	annotationCategories []string

	// labels[i] is the 0-based category id of sample i; ordinals[i] its
	// 1-based position within the category, matching the on-disk numbering.
	labels   []int32
	ordinals []int32
}

var _ datasets.Indexed = &Caltech101{}

// NewCaltech101 builds the index of the Caltech 101 dataset stored under
// baseDir (in the "caltech101" subdirectory).
//
// targetTypes selects what At returns as target: Category, Annotation or both.
// It defaults to Category.
//
// It fails if the dataset is not present -- use DownloadCaltech101 first to
// fetch it.
func NewCaltech101(baseDir string, targetTypes ...TargetType) (*Caltech101, error) {
	targetTypes, err := verifyTargetTypes(targetTypes)
	if err != nil {
		return nil, err
	}
	ds := &Caltech101{
		root:        path.Join(fsutil.MustReplaceTildeInDir(baseDir), Caltech101SubDir),
		targetTypes: targetTypes,
	}
	for _, t := range targetTypes {
		switch t {
		case Category:
			ds.wantCategory = true
		case Annotation:
			ds.wantAnnotation = true
		}
	}
	if ds.wantAnnotation {
		ds.ContourReader = ReadContour
	}

	imagesRoot := path.Join(ds.root, Caltech101ImagesDir)
	if !fsutil.MustFileExists(imagesRoot) {
		return nil, errors.Errorf(
			"Caltech 101 dataset not found or corrupted in %q: use caltech.DownloadCaltech101 to download it",
			ds.root)
	}
	categories, err := listCategories(imagesRoot)
	if err != nil {
		return nil, err
	}
	ds.categories = make([]string, 0, len(categories))
	for _, c := range categories {
		if c == BackgroundCategory {
			// Clutter folder, not a real class.
			continue
		}
		ds.categories = append(ds.categories, c)
	}
	ds.annotationCategories = make([]string, len(ds.categories))
	for ii, c := range ds.categories {
		if remapped, found := annotationNameMap[c]; found {
			ds.annotationCategories[ii] = remapped
		} else {
			ds.annotationCategories[ii] = c
		}
	}

	for ii, c := range ds.categories {
		n, err := countSamples(path.Join(imagesRoot, c), "")
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
func (ds *Caltech101) WithTransform(transform datasets.ImageTransform) *Caltech101 {
	ds.transform = transform
	return ds
}

// WithTargetTransform sets a transform applied to the target of every sample
// returned by At. It returns the updated dataset, so calls can be cascaded.
func (ds *Caltech101) WithTargetTransform(transform datasets.TargetTransform) *Caltech101 {
	ds.targetTransform = transform
	return ds
}

// Name implements datasets.Indexed.
func (ds *Caltech101) Name() string { return "Caltech 101" }

// Len implements datasets.Indexed. It returns the total number of samples.
func (ds *Caltech101) Len() int { return len(ds.labels) }

// Categories returns the sorted category names, without the background folder.
// The returned slice is owned by the dataset and must not be modified.
func (ds *Caltech101) Categories() []string { return ds.categories }

// ImagePath returns the path of the image of sample index.
func (ds *Caltech101) ImagePath(index int) string {
	return path.Join(ds.root, Caltech101ImagesDir, ds.categories[ds.labels[index]],
		fmt.Sprintf("image_%04d.jpg", ds.ordinals[index]))
}

// AnnotationPath returns the path of the annotation file of sample index.
// Notice the category directory name may differ from the image one.
func (ds *Caltech101) AnnotationPath(index int) string {
	return path.Join(ds.root, Caltech101AnnotationsDir, ds.annotationCategories[ds.labels[index]],
		fmt.Sprintf("annotation_%04d.mat", ds.ordinals[index]))
}

// At implements datasets.Indexed. It decodes the image of the given sample and
// builds its target according to the target types requested at construction,
// applying the configured transforms, if any.
func (ds *Caltech101) At(index int) (img image.Image, target datasets.Target, err error) {
	if index < 0 || index >= ds.Len() {
		err = errors.Errorf("sample index %d invalid: there are only %d samples", index, ds.Len())
		return
	}
	img, err = readImage(ds.ImagePath(index))
	if err != nil {
		return
	}
	if ds.wantCategory {
		target.Category = ds.labels[index]
	}
	if ds.wantAnnotation {
		target.Contour, err = ds.ContourReader(ds.AnnotationPath(index))
		if err != nil {
			err = errors.WithMessagef(err, "failed to read annotation of sample #%d", index)
			return
		}
	}
	if ds.transform != nil {
		img = ds.transform(img)
	}
	if ds.targetTransform != nil {
		target = ds.targetTransform(target)
	}
	return
}
