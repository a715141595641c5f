package vision

import (
	"fmt"
	"io"
)

type ImageStreamHeader struct {
	Width int
	Height int
	Channels int
	Length int
}

type ImageData struct {
	Images []Image
}

func (d ImageData) EncodeStream(w io.Writer) error {
	for _, image := range d.Images {
		header := ImageStreamHeader{
			Width: image.Width,
			Height: image.Height,
			Channels: 3,
			Length: 1,
		}
		if err := WriteJsonData(header, w); err != nil {
			return err
		}
		if _, err := w.Write(image.Bytes); err != nil {
			return err
		}
	}
	return nil
}

func (d ImageData) Encode(format string, w io.Writer) error {
	if len(d.Images) != 1 {
		return fmt.Errorf("image files store exactly one image, not %d", len(d.Images))
	}
	image := d.Images[0]
	if format == "jpeg" {
		_, err := w.Write(image.AsJPG())
		return err
	} else if format == "png" {
		_, err := w.Write(image.AsPNG())
		return err
	}
	return fmt.Errorf("unknown format %s", format)
}

func (d ImageData) Type() DataType {
	return ImageType
}

func (d ImageData) GetDefaultExtAndFormat() (string, string) {
	return "jpg", "jpeg"
}

func (d ImageData) GetMetadata() interface{} {
	return nil
}

// SliceData
func (d ImageData) Length() int {
	return len(d.Images)
}
func (d ImageData) Slice(i, j int) Data {
	return ImageData{Images: d.Images[i:j]}
}
func (d ImageData) Append(other Data) Data {
	other_ := other.(ImageData)
	return ImageData{
		Images: append(d.Images, other_.Images...),
	}
}

func (d ImageData) Reader() DataReader {
	return &SliceReader{Data: d}
}

func init() {
	DataImpls[ImageType] = DataImpl{
		DecodeStream: func(r io.Reader) (Data, error) {
			var header ImageStreamHeader
			if err := ReadJsonData(r, &header); err != nil {
				return nil, err
			}
			bytes := make([]byte, header.Width*header.Height*3)
			if _, err := io.ReadFull(r, bytes); err != nil {
				return nil, err
			}
			return ImageData{
				Images: []Image{ImageFromBytes(header.Width, header.Height, bytes)},
			}, nil
		},
		Decode: func(format string, metadataRaw string, r io.Reader) (Data, error) {
			var image Image
			var err error
			if format == "jpeg" {
				image, err = ImageFromJPGReader(r)
			} else if format == "png" {
				image, err = ImageFromPNGReader(r)
			} else {
				err = fmt.Errorf("unknown format %s", format)
			}
			if err != nil {
				return nil, err
			}
			return ImageData{Images: []Image{image}}, nil
		},
		GetDefaultMetadata: func(fname string) (string, string, error) {
			ext := Ext(fname)
			if ext == "jpg" || ext == "jpeg" {
				return "jpeg", "", nil
			} else if ext == "png" {
				return "png", "", nil
			}
			return "", "", fmt.Errorf("unknown image extension %s", ext)
		},
		Builder: func() ChunkBuilder {
			return &SliceBuilder{Data: ImageData{}}
		},
		ChunkType: ImageType,
	}
}
