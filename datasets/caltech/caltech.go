// Package caltech provides tools to download and cache the Caltech 101 and
// Caltech 256 image-classification datasets, and datasets.Indexed
// implementations over their on-disk layouts.
//
// The datasets' home pages are https://data.caltech.edu/records/mzrjq-6wc02
// (Caltech 101) and https://data.caltech.edu/records/nyy15-4j048 (Caltech 256).
//
// Both adapters expect (or download to) a fixed directory layout under their
// base directory, and resolve one sample per At call:
//
//	ds, err := caltech.NewCaltech101(baseDir, caltech.Category)
//	img, target, err := ds.At(0)
//
// Use DownloadCaltech101/DownloadCaltech256 to fetch the archives if they are
// not present locally yet.
package caltech

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/JonasKlotz/vision/datasets"
	"github.com/pkg/errors"
)

// TargetType selects what a Caltech dataset returns as the target of a sample.
type TargetType string

const (
	// Category is the 0-based class id of the sample.
	Category TargetType = "category"

	// Annotation is the hand-generated outline of the object in the image,
	// loaded from the sample's ".mat" annotation file. Only Caltech 101
	// carries annotations.
	Annotation TargetType = "annotation"
)

var allTargetTypes = []string{string(Category), string(Annotation)}

// verifyTargetTypes validates the requested target kinds before anything on
// the filesystem is touched. An empty request defaults to Category.
func verifyTargetTypes(targetTypes []TargetType) ([]TargetType, error) {
	if len(targetTypes) == 0 {
		targetTypes = []TargetType{Category}
	}
	for _, t := range targetTypes {
		if err := datasets.VerifyStrArg(string(t), "targetType", allTargetTypes); err != nil {
			return nil, err
		}
	}
	return targetTypes, nil
}

// readImage opens and decodes the image stored at imagePath.
func readImage(imagePath string) (image.Image, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", imagePath)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", imagePath)
	}
	return img, nil
}

// countSamples counts the image files in the category directory dirPath,
// optionally keeping only files with the given suffix (empty keeps all).
func countSamples(dirPath, suffix string) (int, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to scan images in directory %q", dirPath)
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if suffix != "" && !strings.HasSuffix(entry.Name(), suffix) {
			continue
		}
		n++
	}
	return n, nil
}

// listCategories returns the names of the immediate subdirectories of
// imagesRoot, sorted lexicographically. Non-directory entries are ignored.
func listCategories(imagesRoot string) ([]string, error) {
	entries, err := os.ReadDir(imagesRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan categories in directory %q", imagesRoot)
	}
	categories := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		categories = append(categories, entry.Name())
	}
	// os.ReadDir returns entries sorted by name already.
	return categories, nil
}
