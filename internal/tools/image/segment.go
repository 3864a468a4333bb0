package image

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// Model geometry for a YOLO segmentation export (640x640 input, 80 classes,
// 32 mask coefficients over a 160x160 prototype grid).
const (
	inputSize     = 640
	numCandidates = 8400
	numClasses    = 80
	numCoeffs     = 32
	protoSize     = 160

	scoreThreshold = 0.25
	iouThreshold   = 0.45
	maskThreshold  = 0.5
)

// ErrNotConfigured is reported when no segmentation model path was provided.
var ErrNotConfigured = errors.New("segmentation model not configured")

// Segmenter runs a pretrained YOLO segmentation model through ONNX Runtime.
// The runtime environment and session are initialized at most once per
// process and reused by every request; after initialization the handle is
// read-only.
type Segmenter struct {
	modelPath string
	libPath   string

	once    sync.Once
	initErr error
	session *ort.DynamicAdvancedSession
}

// NewSegmenter prepares a lazy segmenter. Nothing is loaded until the first
// Segment call.
func NewSegmenter(modelPath, libPath string) *Segmenter {
	return &Segmenter{modelPath: modelPath, libPath: libPath}
}

// Configured reports whether a model path was provided.
func (s *Segmenter) Configured() bool {
	return s != nil && s.modelPath != ""
}

func (s *Segmenter) ensure() error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	s.once.Do(func() {
		if s.libPath != "" {
			ort.SetSharedLibraryPath(s.libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			s.initErr = fmt.Errorf("initialize onnx runtime: %w", err)
			return
		}
		session, err := ort.NewDynamicAdvancedSession(
			s.modelPath,
			[]string{"images"},
			[]string{"output0", "output1"},
			nil,
		)
		if err != nil {
			s.initErr = fmt.Errorf("load segmentation model: %w", err)
			return
		}
		s.session = session
	})
	return s.initErr
}

// Segmentation holds the detected instance masks along with the letterbox
// transform needed to map source pixels into mask space.
type Segmentation struct {
	Masks []Mask

	scale      float64
	padX, padY float64
}

// Mask is one instance mask on the prototype grid, limited to its detection box.
type Mask struct {
	bits  []bool
	score float32
}

// Covers reports whether the mask covers the source pixel (ox, oy).
func (g *Segmentation) Covers(m Mask, ox, oy int) bool {
	lx := float64(ox)*g.scale + g.padX
	ly := float64(oy)*g.scale + g.padY
	px := int(lx * protoSize / inputSize)
	py := int(ly * protoSize / inputSize)
	if px < 0 || py < 0 || px >= protoSize || py >= protoSize {
		return false
	}
	return m.bits[py*protoSize+px]
}

// Segment runs the model against img and returns the detected masks.
func (s *Segmenter) Segment(img image.Image) (*Segmentation, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	input, seg := letterbox(img)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, inputSize, inputSize), input)
	if err != nil {
		return nil, fmt.Errorf("build input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	detTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 4+numClasses+numCoeffs, numCandidates))
	if err != nil {
		return nil, fmt.Errorf("build output tensor: %w", err)
	}
	defer detTensor.Destroy()

	protoTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, numCoeffs, protoSize, protoSize))
	if err != nil {
		return nil, fmt.Errorf("build proto tensor: %w", err)
	}
	defer protoTensor.Destroy()

	if err := s.session.Run([]ort.Value{inputTensor}, []ort.Value{detTensor, protoTensor}); err != nil {
		return nil, fmt.Errorf("run segmentation model: %w", err)
	}

	detections := decodeDetections(detTensor.GetData())
	detections = nonMaxSuppression(detections)
	seg.Masks = buildMasks(detections, protoTensor.GetData())
	return seg, nil
}

// letterbox scales img into the model's square input with gray padding and
// returns the normalized CHW tensor data plus the transform for mapping
// source pixels back into input space.
func letterbox(img image.Image) ([]float32, *Segmentation) {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	scale := math.Min(inputSize/float64(srcW), inputSize/float64(srcH))
	newW := int(math.Round(float64(srcW) * scale))
	newH := int(math.Round(float64(srcH) * scale))
	padX := float64(inputSize-newW) / 2
	padY := float64(inputSize-newH) / 2

	resized := imaging.Resize(img, newW, newH, imaging.Linear)
	canvas := imaging.New(inputSize, inputSize, color.NRGBA{R: 114, G: 114, B: 114, A: 255})
	canvas = imaging.Paste(canvas, resized, image.Pt(int(padX), int(padY)))

	data := make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	i := 0
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			off := canvas.PixOffset(x, y)
			data[i] = float32(canvas.Pix[off]) / 255
			data[plane+i] = float32(canvas.Pix[off+1]) / 255
			data[2*plane+i] = float32(canvas.Pix[off+2]) / 255
			i++
		}
	}

	return data, &Segmentation{scale: scale, padX: padX, padY: padY}
}

type detection struct {
	box    rect
	score  float32
	coeffs [numCoeffs]float32
}

type rect struct {
	x0, y0, x1, y1 float32
}

func (r rect) area() float32 {
	w := r.x1 - r.x0
	h := r.y1 - r.y0
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// decodeDetections reads the [4+classes+coeffs][candidates] output layout and
// keeps candidates whose best class score clears the threshold.
func decodeDetections(data []float32) []detection {
	at := func(attr, i int) float32 { return data[attr*numCandidates+i] }

	var out []detection
	for i := 0; i < numCandidates; i++ {
		best := float32(0)
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, i); s > best {
				best = s
			}
		}
		if best < scoreThreshold {
			continue
		}
		cx, cy := at(0, i), at(1, i)
		w, h := at(2, i), at(3, i)
		d := detection{
			box:   rect{x0: cx - w/2, y0: cy - h/2, x1: cx + w/2, y1: cy + h/2},
			score: best,
		}
		for k := 0; k < numCoeffs; k++ {
			d.coeffs[k] = at(4+numClasses+k, i)
		}
		out = append(out, d)
	}
	return out
}

func nonMaxSuppression(dets []detection) []detection {
	sort.Slice(dets, func(i, j int) bool { return dets[i].score > dets[j].score })
	var kept []detection
	for _, d := range dets {
		overlaps := false
		for _, k := range kept {
			if iou(d.box, k.box) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b rect) float32 {
	inter := rect{
		x0: max32(a.x0, b.x0),
		y0: max32(a.y0, b.y0),
		x1: min32(a.x1, b.x1),
		y1: min32(a.y1, b.y1),
	}
	ia := inter.area()
	union := a.area() + b.area() - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

// buildMasks multiplies each detection's coefficients against the prototype
// grid, applies sigmoid, thresholds, and clips to the detection box.
func buildMasks(dets []detection, protos []float32) []Mask {
	masks := make([]Mask, 0, len(dets))
	for _, d := range dets {
		bits := make([]bool, protoSize*protoSize)

		// Detection boxes are in input space; prototype grid is 1/4 scale.
		px0 := clampInt(int(d.box.x0*protoSize/inputSize), 0, protoSize-1)
		py0 := clampInt(int(d.box.y0*protoSize/inputSize), 0, protoSize-1)
		px1 := clampInt(int(d.box.x1*protoSize/inputSize)+1, 0, protoSize)
		py1 := clampInt(int(d.box.y1*protoSize/inputSize)+1, 0, protoSize)

		for y := py0; y < py1; y++ {
			for x := px0; x < px1; x++ {
				var sum float32
				for k := 0; k < numCoeffs; k++ {
					sum += d.coeffs[k] * protos[k*protoSize*protoSize+y*protoSize+x]
				}
				if sigmoid(sum) > maskThreshold {
					bits[y*protoSize+x] = true
				}
			}
		}
		masks = append(masks, Mask{bits: bits, score: d.score})
	}
	return masks
}

func sigmoid(v float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(v))))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
