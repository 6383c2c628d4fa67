//go:build gocv

package main

import (
	"errors"
	"io"

	"github.com/banshee-data/crossing.report/internal/video"
	"github.com/banshee-data/crossing.report/internal/video/cv"
)

func init() {
	backends["opencv"] = mediaBackend{Open: cv.Open, NewEncoder: cv.NewWriter}
	newYOLODetector = func(o yoloOptions) (video.Detector, io.Closer, error) {
		if o.config == "" || o.names == "" {
			return nil, nil, errors.New("--yolo-weights needs --yolo-config and --yolo-names")
		}
		d, err := cv.NewDNN(cv.DNNConfig{WeightsPath: o.weights, ConfigPath: o.config, NamesPath: o.names})
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	}
}
