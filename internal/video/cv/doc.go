// Package cv adapts OpenCV (via gocv) to the video contracts: a VideoCapture
// frame source, a VideoWriter encoder and a YOLO DNN detector.
//
// The adapters need OpenCV installed and are only compiled with the "gocv"
// build tag:
//
//	go build -tags gocv ./cmd/crossing
package cv
