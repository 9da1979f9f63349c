package caltech

import (
	"os"

	"github.com/JonasKlotz/vision/datasets"
	"github.com/daniellowtw/matlab"
	"github.com/pkg/errors"
)

// objContourVar is the variable holding the outline in the annotation files:
// a 2 x N matrix of doubles, one (x, y) point per column.
const objContourVar = "obj_contour"

// ReadContour reads the hand-generated object outline stored in a Caltech 101
// annotation ".mat" file.
//
// The matrix is stored column-major, so the flattened values alternate between
// the x and the y coordinate of consecutive points.
func ReadContour(filePath string) (*datasets.Contour, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open annotation file %q", filePath)
	}
	defer func() { _ = f.Close() }()

	matlabFile, err := matlab.NewFileFromReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse annotation file %q", filePath)
	}
	matContour, found := matlabFile.GetVar(objContourVar)
	if !found {
		return nil, errors.Errorf("failed to parse var %q in Matlab file %q", objContourVar, filePath)
	}

	values := matContour.Value()
	if len(values)%2 != 0 {
		return nil, errors.Errorf("var %q in Matlab file %q has %d values, expected an even number (x, y pairs)",
			objContourVar, filePath, len(values))
	}
	contour := &datasets.Contour{
		X: make([]float64, 0, len(values)/2),
		Y: make([]float64, 0, len(values)/2),
	}
	for ii := 0; ii < len(values); ii += 2 {
		x, err := toFloat64(values[ii])
		if err != nil {
			return nil, errors.WithMessagef(err, "var %q in Matlab file %q", objContourVar, filePath)
		}
		y, err := toFloat64(values[ii+1])
		if err != nil {
			return nil, errors.WithMessagef(err, "var %q in Matlab file %q", objContourVar, filePath)
		}
		contour.X = append(contour.X, x)
		contour.Y = append(contour.Y, y)
	}
	return contour, nil
}

// toFloat64 converts the numeric scalar types the Matlab parser yields.
func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	}
	return 0, errors.Errorf("unsupported Matlab value type %T", value)
}
