// Package detect defines the detection data model shared by the inference
// boundary and the tracker, plus frame sources that deliver per-frame
// detection batches from an external inference process.
package detect

// Object class IDs as emitted by the detection model.
const (
	ClassBall   = 0
	ClassPutter = 1
)

// Detection is one candidate object observation for a single frame.
// Coordinates are pixel coordinates in the original camera frame.
type Detection struct {
	ClassID    int     `json:"class_id"`
	Confidence float32 `json:"confidence"`
	X1         float32 `json:"x1"`
	Y1         float32 `json:"y1"`
	X2         float32 `json:"x2"`
	Y2         float32 `json:"y2"`
}

// Center returns the midpoint of the bounding box.
func (d Detection) Center() (float32, float32) {
	return (d.X1 + d.X2) * 0.5, (d.Y1 + d.Y2) * 0.5
}

// Width returns the bounding box width.
func (d Detection) Width() float32 { return d.X2 - d.X1 }

// Height returns the bounding box height.
func (d Detection) Height() float32 { return d.Y2 - d.Y1 }

// ParseRaw converts flat detector output rows into Detections.
// Each row is [x1, y1, x2, y2, confidence, class_id] in network input
// coordinates; boxes are rescaled to the original frame size and rows below
// confThresh are dropped. Trailing partial rows are ignored.
func ParseRaw(output []float32, confThresh float32, origW, origH, netW, netH int) []Detection {
	if netW <= 0 || netH <= 0 {
		return nil
	}

	sx := float32(origW) / float32(netW)
	sy := float32(origH) / float32(netH)

	numRows := len(output) / 6
	dets := make([]Detection, 0, numRows)
	for i := 0; i < numRows; i++ {
		row := output[i*6 : i*6+6]

		conf := row[4]
		if conf < confThresh {
			continue
		}

		dets = append(dets, Detection{
			ClassID:    int(row[5]),
			Confidence: conf,
			X1:         row[0] * sx,
			Y1:         row[1] * sy,
			X2:         row[2] * sx,
			Y2:         row[3] * sy,
		})
	}
	return dets
}
