package app

import (
	"github.com/vistream/vistream/detect"
	"github.com/vistream/vistream/vision"

	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
)

func (item *DBItem) Handle(format string, w http.ResponseWriter, r *http.Request) {
	item.Load()

	if format == "" || format == item.Format {
		http.ServeFile(w, r, item.Fname())
		return
	}

	data, err := item.LoadData()
	if err != nil {
		panic(err)
	}

	if format == "jpeg" {
		w.Header().Set("Content-Type", "image/jpeg")
	} else if format == "png" {
		w.Header().Set("Content-Type", "image/png")
	} else if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := data.Encode(format, w); err != nil {
		panic(err)
	}
}

func init() {
	Router.HandleFunc("/datasets", func(w http.ResponseWriter, r *http.Request) {
		vision.JsonResponse(w, ListDatasets())
	}).Methods("GET")

	Router.HandleFunc("/datasets", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		name := r.PostForm.Get("name")
		dataType := r.PostForm.Get("data_type")
		if _, ok := vision.DataImpls[vision.DataType(dataType)]; !ok {
			http.Error(w, fmt.Sprintf("unknown data type %s", dataType), 400)
			return
		}
		ds := NewDataset(name, "source", vision.DataType(dataType))
		vision.JsonResponse(w, ds)
	}).Methods("POST")

	Router.HandleFunc("/datasets/{ds_id}", func(w http.ResponseWriter, r *http.Request) {
		dsID := vision.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		vision.JsonResponse(w, dataset)
	}).Methods("GET")

	Router.HandleFunc("/datasets/{ds_id}", func(w http.ResponseWriter, r *http.Request) {
		dsID := vision.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		dataset.Delete()
	}).Methods("DELETE")

	Router.HandleFunc("/datasets/{ds_id}/items", func(w http.ResponseWriter, r *http.Request) {
		dsID := vision.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		vision.JsonResponse(w, dataset.ListItems())
	}).Methods("GET")

	// multipart upload of one image file into an image dataset
	Router.HandleFunc("/datasets/{ds_id}/items", func(w http.ResponseWriter, r *http.Request) {
		dsID := vision.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		if dataset.DataType != vision.ImageType {
			http.Error(w, "can only upload into image datasets", 400)
			return
		}

		file, fh, err := r.FormFile("file")
		if err != nil {
			http.Error(w, fmt.Sprintf("bad upload: %v", err), 400)
			return
		}
		defer file.Close()
		key := r.FormValue("key")
		if key == "" {
			key = fh.Filename
		}
		ext := vision.Ext(fh.Filename)
		if ext != "jpg" && ext != "jpeg" && ext != "png" {
			http.Error(w, fmt.Sprintf("unsupported image extension %s", ext), 400)
			return
		}
		log.Printf("[dataset %d] add item %s", dsID, key)

		item := dataset.AddItem(key, ext, "", "")
		item.Mkdir()
		dst, err := os.Create(item.Fname())
		if err != nil {
			panic(err)
		}
		if _, err := io.Copy(dst, file); err != nil {
			dst.Close()
			panic(err)
		}
		dst.Close()
		if err := item.SetMetadata(); err != nil {
			item.Delete()
			http.Error(w, fmt.Sprintf("bad image: %v", err), 400)
			return
		}

		// sanity-probe the upload so bad files are rejected up front
		if dims, err := vision.GetImageDimsFromFile(item.Fname()); err != nil {
			item.Delete()
			http.Error(w, fmt.Sprintf("bad image: %v", err), 400)
			return
		} else {
			log.Printf("[dataset %d] item %s: %dx%d", dsID, key, dims[0], dims[1])
		}

		vision.JsonResponse(w, item)
	}).Methods("POST")

	Router.HandleFunc("/datasets/{ds_id}/items/{item_key}", func(w http.ResponseWriter, r *http.Request) {
		dsID := vision.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		item := dataset.GetItem(mux.Vars(r)["item_key"])
		if item == nil {
			http.Error(w, "no such item", 404)
			return
		}
		item.Handle(r.URL.Query().Get("format"), w, r)
	}).Methods("GET")

	// detections of a dataset as GeoJSON
	Router.HandleFunc("/datasets/{ds_id}/export", func(w http.ResponseWriter, r *http.Request) {
		dsID := vision.ParseInt(mux.Vars(r)["ds_id"])
		dataset := GetDataset(dsID)
		if dataset == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		if dataset.DataType != vision.DetectionType {
			http.Error(w, "can only export detection datasets", 400)
			return
		}
		var filter *detect.Filter
		if scoreStr := r.URL.Query().Get("score"); scoreStr != "" {
			filter = detect.NewFilter(detect.FilterParams{Score: vision.ParseFloat(scoreStr)})
		}
		collections := make(map[string]interface{})
		for _, item := range dataset.ListItems() {
			data, err := item.LoadData()
			if err != nil {
				http.Error(w, fmt.Sprintf("error loading item %s: %v", item.Key, err), 500)
				return
			}
			detectionData := data.(vision.DetectionData)
			if filter != nil {
				detectionData.Detections = filter.FilterFrames(detectionData.Detections)
			}
			collections[item.Key] = detect.ExportGeoJSON(detectionData)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(collections)
	}).Methods("GET")
}
