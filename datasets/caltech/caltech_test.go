package caltech

import (
	"image"
	"image/jpeg"
	"os"
	"path"
	"testing"

	"github.com/JonasKlotz/vision/datasets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJPEG(t *testing.T, filePath string) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	f, err := os.Create(filePath)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())
}

// makeCaltech101Root builds a synthetic dataset layout: for each category the
// given number of images, named the way the real dataset names them.
func makeCaltech101Root(t *testing.T, perCategory map[string]int) (baseDir string) {
	baseDir = t.TempDir()
	imagesRoot := path.Join(baseDir, Caltech101SubDir, Caltech101ImagesDir)
	for category, n := range perCategory {
		categoryDir := path.Join(imagesRoot, category)
		require.NoError(t, os.MkdirAll(categoryDir, 0755))
		for ordinal := 1; ordinal <= n; ordinal++ {
			writeJPEG(t, path.Join(categoryDir, imageFileName101(ordinal)))
		}
	}
	return
}

func imageFileName101(ordinal int) string {
	name := [...]string{"image_0001.jpg", "image_0002.jpg", "image_0003.jpg"}
	return name[ordinal-1]
}

func TestCaltech101(t *testing.T) {
	baseDir := makeCaltech101Root(t, map[string]int{
		"a":                2,
		"b":                3,
		BackgroundCategory: 1, // Clutter folder, must not become a class.
	})
	ds, err := NewCaltech101(baseDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, ds.Categories())
	require.Equal(t, 5, ds.Len())

	wantCategories := []int32{0, 0, 1, 1, 1}
	wantFileNames := []string{
		"image_0001.jpg", "image_0002.jpg",
		"image_0001.jpg", "image_0002.jpg", "image_0003.jpg",
	}
	lastCategory := int32(0)
	for ii := 0; ii < ds.Len(); ii++ {
		img, target, err := ds.At(ii)
		require.NoErrorf(t, err, "At(%d)", ii)
		require.NotNil(t, img)
		assert.Equalf(t, wantCategories[ii], target.Category, "category of sample %d", ii)
		assert.Nilf(t, target.Contour, "sample %d: annotations were not requested", ii)
		assert.Equalf(t, wantFileNames[ii], path.Base(ds.ImagePath(ii)), "file name of sample %d", ii)

		// Category ids are non-decreasing and within range.
		assert.GreaterOrEqual(t, target.Category, lastCategory)
		assert.Less(t, int(target.Category), len(ds.Categories()))
		lastCategory = target.Category
	}

	_, _, err = ds.At(-1)
	require.Error(t, err)
	_, _, err = ds.At(ds.Len())
	require.Error(t, err)
}

func TestCaltech101InvalidTargetType(t *testing.T) {
	// Validation happens before any filesystem access: the base directory
	// doesn't even exist, yet the error is about the target type.
	baseDir := path.Join(t.TempDir(), "does_not_exist")
	_, err := NewCaltech101(baseDir, TargetType("segmentation"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"segmentation"`)
	assert.Contains(t, err.Error(), "category")
	assert.Contains(t, err.Error(), "annotation")
}

func TestCaltech101MissingDataset(t *testing.T) {
	_, err := NewCaltech101(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DownloadCaltech101")
}

func TestCaltech101Annotations(t *testing.T) {
	baseDir := makeCaltech101Root(t, map[string]int{
		"Faces": 1,
		"zebra": 1,
	})
	ds, err := NewCaltech101(baseDir, Category, Annotation)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	// The annotation directory of "Faces" is remapped, "zebra" keeps its name.
	assert.Equal(t,
		path.Join(baseDir, Caltech101SubDir, Caltech101AnnotationsDir, "Faces_2", "annotation_0001.mat"),
		ds.AnnotationPath(0))
	assert.Equal(t,
		path.Join(baseDir, Caltech101SubDir, Caltech101AnnotationsDir, "zebra", "annotation_0001.mat"),
		ds.AnnotationPath(1))

	var readPaths []string
	ds.ContourReader = func(filePath string) (*datasets.Contour, error) {
		readPaths = append(readPaths, filePath)
		return &datasets.Contour{X: []float64{1, 2}, Y: []float64{3, 4}}, nil
	}

	_, target, err := ds.At(0)
	require.NoError(t, err)
	assert.Equal(t, int32(0), target.Category)
	require.NotNil(t, target.Contour)
	assert.Equal(t, 2, target.Contour.Len())

	_, target, err = ds.At(1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), target.Category)
	require.NotNil(t, target.Contour)

	assert.Equal(t, []string{ds.AnnotationPath(0), ds.AnnotationPath(1)}, readPaths)
}

func TestCaltech101AnnotationOnly(t *testing.T) {
	baseDir := makeCaltech101Root(t, map[string]int{
		"Faces": 1,
		"zebra": 1,
	})
	ds, err := NewCaltech101(baseDir, Annotation)
	require.NoError(t, err)
	ds.ContourReader = func(string) (*datasets.Contour, error) {
		return &datasets.Contour{X: []float64{1}, Y: []float64{2}}, nil
	}

	// The category was not requested, so the target only carries the contour.
	_, target, err := ds.At(1)
	require.NoError(t, err)
	assert.Equal(t, int32(0), target.Category)
	require.NotNil(t, target.Contour)
}

func TestCaltech101Transforms(t *testing.T) {
	baseDir := makeCaltech101Root(t, map[string]int{"a": 1})
	ds, err := NewCaltech101(baseDir)
	require.NoError(t, err)
	ds.WithTransform(datasets.ResizeCenterCrop(4)).
		WithTargetTransform(func(target datasets.Target) datasets.Target {
			target.Category += 100
			return target
		})

	img, target, err := ds.At(0)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
	assert.Equal(t, int32(100), target.Category)
}

func TestCaltech256(t *testing.T) {
	baseDir := t.TempDir()
	imagesRoot := path.Join(baseDir, Caltech256SubDir, Caltech256ImagesDir)
	require.NoError(t, os.MkdirAll(path.Join(imagesRoot, "001.ak47"), 0755))
	require.NoError(t, os.MkdirAll(path.Join(imagesRoot, "002.american-flag"), 0755))
	writeJPEG(t, path.Join(imagesRoot, "001.ak47", "001_0001.jpg"))
	writeJPEG(t, path.Join(imagesRoot, "001.ak47", "001_0002.jpg"))
	writeJPEG(t, path.Join(imagesRoot, "002.american-flag", "002_0001.jpg"))
	// Non-".jpg" entries don't count as samples.
	require.NoError(t, os.WriteFile(path.Join(imagesRoot, "001.ak47", "notes.txt"), []byte("x"), 0644))

	ds, err := NewCaltech256(baseDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001.ak47", "002.american-flag"}, ds.Categories())
	require.Equal(t, 3, ds.Len())

	wantPaths := []string{
		path.Join(imagesRoot, "001.ak47", "001_0001.jpg"),
		path.Join(imagesRoot, "001.ak47", "001_0002.jpg"),
		path.Join(imagesRoot, "002.american-flag", "002_0001.jpg"),
	}
	for ii := 0; ii < ds.Len(); ii++ {
		assert.Equal(t, wantPaths[ii], ds.ImagePath(ii))
		img, target, err := ds.At(ii)
		require.NoErrorf(t, err, "At(%d)", ii)
		require.NotNil(t, img)
		assert.Equal(t, ds.labels[ii], target.Category)
	}

	_, _, err = ds.At(3)
	require.Error(t, err)
}

func TestCaltech256MissingDataset(t *testing.T) {
	_, err := NewCaltech256(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DownloadCaltech256")
}

func TestDownloadIdempotent(t *testing.T) {
	// A pre-existing image directory short-circuits the whole fetch path:
	// nothing is downloaded and nothing new is written.
	baseDir := makeCaltech101Root(t, map[string]int{"a": 1})
	root101 := path.Join(baseDir, Caltech101SubDir)
	before := listDir(t, root101)
	require.NoError(t, DownloadCaltech101(baseDir))
	assert.Equal(t, before, listDir(t, root101))

	baseDir = t.TempDir()
	root256 := path.Join(baseDir, Caltech256SubDir)
	require.NoError(t, os.MkdirAll(path.Join(root256, Caltech256ImagesDir), 0755))
	before = listDir(t, root256)
	require.NoError(t, DownloadCaltech256(baseDir))
	assert.Equal(t, before, listDir(t, root256))
}

func listDir(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
