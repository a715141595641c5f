package app

import (
	"github.com/vistream/vistream/detect"
	"github.com/vistream/vistream/vision"

	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type Job struct {
	ID int
	Name string
	Op string
	Params string
	InputID int
	OutputID int
	State string
	Progress int
	Error string
	StartTime string
}

type DBJob struct {Job}

// JobParams configures the post-processing applied after the detector.
type JobParams struct {
	NMSThreshold float64
	Filter detect.FilterParams
	Track bool
	Tracker detect.TrackerParams
	// also produce a dataset of frames with boxes drawn
	Render bool
}

func (p JobParams) GetNMSThreshold() float64 {
	if p.NMSThreshold == 0 {
		return 0.45
	}
	return p.NMSThreshold
}

// JobRequest is the POST /jobs body.
type JobRequest struct {
	Name string
	DatasetID int
	Params JobParams
}

const JobQuery = "SELECT id, name, op, params, input_id, output_id, state, progress, error, start_time FROM jobs"

func jobListHelper(rows *Rows) []*DBJob {
	jobs := []*DBJob{}
	for rows.Next() {
		var j DBJob
		rows.Scan(&j.ID, &j.Name, &j.Op, &j.Params, &j.InputID, &j.OutputID, &j.State, &j.Progress, &j.Error, &j.StartTime)
		jobs = append(jobs, &j)
	}
	return jobs
}

func ListJobs() []*DBJob {
	rows := db.Query(JobQuery + " ORDER BY id DESC")
	return jobListHelper(rows)
}

func GetJob(id int) *DBJob {
	rows := db.Query(JobQuery + " WHERE id = ?", id)
	jobs := jobListHelper(rows)
	if len(jobs) == 1 {
		return jobs[0]
	} else {
		return nil
	}
}

func NewJob(name string, op string, params string, inputID int, outputID int) *DBJob {
	res := db.Exec(
		"INSERT INTO jobs (name, op, params, input_id, output_id, state, progress, error, start_time) VALUES (?, ?, ?, ?, ?, 'pending', 0, '', datetime('now'))",
		name, op, params, inputID, outputID,
	)
	return GetJob(res.LastInsertId())
}

func (j *DBJob) UpdateState(state string) {
	j.State = state
	db.Exec("UPDATE jobs SET state = ? WHERE id = ?", state, j.ID)
}

func (j *DBJob) UpdateProgress(progress int) {
	j.Progress = progress
	db.Exec("UPDATE jobs SET progress = ? WHERE id = ?", progress, j.ID)
}

func (j *DBJob) SetDone(error string) {
	if error == "" {
		j.UpdateState("done")
	} else {
		j.UpdateState("error")
	}
	db.Exec("UPDATE jobs SET error = ? WHERE id = ?", error, j.ID)
}

// Run executes the detection pipeline over every item of the input dataset.
// It is called on a background goroutine.
func (j *DBJob) Run() {
	var params JobParams
	if j.Params != "" {
		if err := json.Unmarshal([]byte(j.Params), &params); err != nil {
			log.Printf("[job %d] warning: error decoding params: %v", j.ID, err)
		}
	}

	input := GetDataset(j.InputID)
	output := GetDataset(j.OutputID)
	if input == nil || output == nil {
		j.SetDone("input or output dataset was deleted")
		return
	}

	var renderDS *DBDataset
	if params.Render {
		renderDS = NewDataset(fmt.Sprintf("%s (rendered)", j.Name), "computed", vision.ImageType)
	}

	filter := detect.NewFilter(params.Filter)

	j.UpdateState("running")
	items := input.ListItems()
	for idx, item := range items {
		err := func() error {
			data, err := item.LoadData()
			if err != nil {
				return fmt.Errorf("error loading item %s: %v", item.Key, err)
			}
			images := data.(vision.ImageData).Images
			detections, err := pool.Detect(images)
			if err != nil {
				return fmt.Errorf("detector error on item %s: %v", item.Key, err)
			}
			detections = detect.NMSFrames(detections, params.GetNMSThreshold())
			detections = filter.FilterFrames(detections)
			if params.Track {
				detections = detect.TrackFrames(params.Tracker, detections)
			}

			canvasDims := [2]int{}
			if len(images) > 0 {
				canvasDims = [2]int{images[0].Width, images[0].Height}
			}
			output.WriteItem(item.Key, vision.DetectionData{
				Detections: detections,
				Metadata: vision.DetectionMetadata{
					CanvasDims: canvasDims,
					Categories: pool.Categories(),
				},
			})

			if renderDS != nil {
				rendered, err := detect.RenderFrames(images, detections, detect.RenderOptions{Labels: true})
				if err != nil {
					return err
				}
				renderDS.WriteItem(item.Key, vision.ImageData{Images: rendered})
			}
			return nil
		}()
		if err != nil {
			log.Printf("[job %d] %v", j.ID, err)
			j.SetDone(err.Error())
			return
		}
		j.UpdateProgress(100*(idx+1)/len(items))
	}
	j.SetDone("")
	log.Printf("[job %d] finished over %d items", j.ID, len(items))
}

func init() {
	Router.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		vision.JsonResponse(w, ListJobs())
	}).Methods("GET")

	Router.HandleFunc("/jobs/{job_id}", func(w http.ResponseWriter, r *http.Request) {
		jobID := vision.ParseInt(mux.Vars(r)["job_id"])
		job := GetJob(jobID)
		if job == nil {
			http.Error(w, "no such job", 404)
			return
		}
		vision.JsonResponse(w, job)
	}).Methods("GET")

	Router.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		var request JobRequest
		if err := vision.ParseJsonRequest(w, r, &request); err != nil {
			return
		}
		name := request.Name

		input := GetDataset(request.DatasetID)
		if input == nil {
			http.Error(w, "no such dataset", 404)
			return
		}
		if input.DataType != vision.ImageType {
			http.Error(w, "detection jobs run over image datasets", 400)
			return
		}
		if name == "" {
			name = fmt.Sprintf("detect %s", input.Name)
		}

		output := NewDataset(fmt.Sprintf("%s (detections)", name), "computed", vision.DetectionType)
		job := NewJob(name, Config.DetectorOp, string(vision.JsonMarshal(request.Params)), input.ID, output.ID)
		log.Printf("[job %d] starting over dataset %d", job.ID, input.ID)
		go job.Run()
		vision.JsonResponse(w, job)
	}).Methods("POST")
}
