package caltech

import (
	"os"
	"path"

	"github.com/JonasKlotz/vision/downloader"
	"github.com/JonasKlotz/vision/pkg/support/fsutil"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// Caltech101URL points at the single ZIP holding both the image and the
	// annotation archives. The checksum is the MD5 published with the record.
	Caltech101URL      = "https://data.caltech.edu/records/mzrjq-6wc02/files/caltech-101.zip?download=1"
	Caltech101ZipFile  = "caltech-101.zip"
	Caltech101Checksum = "3138e1922a9193bfa496528edbbc45d0"

	Caltech256URL      = "https://data.caltech.edu/records/nyy15-4j048/files/256_ObjectCategories.tar"
	Caltech256TarFile  = "256_ObjectCategories.tar"
	Caltech256Checksum = "67b4f42ca05d46448c6bb8ecd2220f6d"
)

// caltech101ArchiveDir is the wrapper directory inside the Caltech 101 ZIP,
// holding the two nested archives.
const caltech101ArchiveDir = "caltech-101"

// DownloadCaltech101 downloads the Caltech 101 dataset to baseDir (under the
// "caltech101" subdirectory) and unpacks it to the canonical layout: the
// "101_ObjectCategories" and "Annotations" directories.
//
// If the dataset is already unpacked it returns immediately.
//
// The distribution is a ZIP wrapping two nested archives plus macOS metadata
// cruft; both nested archives are extracted and all the intermediate files
// are removed, leaving only the canonical directories.
func DownloadCaltech101(baseDir string) error {
	root := path.Join(fsutil.MustReplaceTildeInDir(baseDir), Caltech101SubDir)
	if fsutil.MustFileExists(path.Join(root, Caltech101ImagesDir)) {
		return nil
	}
	if err := os.MkdirAll(root, 0777); err != nil && !os.IsExist(err) {
		return errors.Wrapf(err, "failed to create path for downloading %q", root)
	}

	zipPath := path.Join(root, Caltech101ZipFile)
	if err := downloader.DownloadIfMissing(Caltech101URL, zipPath, Caltech101Checksum); err != nil {
		return errors.WithMessagef(err, "failed to download Caltech 101 from %q", Caltech101URL)
	}
	if err := downloader.Unzip(zipPath, root); err != nil {
		return errors.WithMessagef(err, "failed to unzip %q", zipPath)
	}

	archiveDir := path.Join(root, caltech101ArchiveDir)
	if err := os.RemoveAll(path.Join(archiveDir, "__MACOSX")); err != nil {
		klog.Warningf("Failed to remove macOS metadata folder from %q: %+v", archiveDir, err)
	}
	err := downloader.ExtractArchive(path.Join(archiveDir, Caltech101ImagesDir+".tar.gz"), root, true)
	if err != nil {
		return err
	}
	err = downloader.ExtractArchive(path.Join(archiveDir, Caltech101AnnotationsDir+".tar"), root, true)
	if err != nil {
		return err
	}

	// Only cruft is left in the wrapper directory and the ZIP itself.
	if err = os.RemoveAll(archiveDir); err != nil {
		klog.Warningf("Failed to remove archive folder %q: %+v", archiveDir, err)
	}
	if err = os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
		klog.Warningf("Failed to remove archive file %q: %+v", zipPath, err)
	}

	if !fsutil.MustFileExists(path.Join(root, Caltech101ImagesDir)) {
		return errors.Errorf("downloaded and extracted %q, but didn't get directory %q",
			Caltech101URL, path.Join(root, Caltech101ImagesDir))
	}
	return nil
}

// DownloadCaltech256 downloads the Caltech 256 dataset to baseDir (under the
// "caltech256" subdirectory) and untars it to the "256_ObjectCategories"
// directory. If the dataset is already unpacked it returns immediately.
func DownloadCaltech256(baseDir string) error {
	root := path.Join(fsutil.MustReplaceTildeInDir(baseDir), Caltech256SubDir)
	return downloader.DownloadAndUntarIfMissing(
		Caltech256URL, root, Caltech256TarFile, Caltech256ImagesDir, Caltech256Checksum)
}
