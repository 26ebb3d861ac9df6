package tasks

import "encoding/json"

// Queue names, one per pipeline step, in the order a video moves through
// them.
const (
	// QueueVideoScript resolves the topic into a narration script.
	QueueVideoScript = "q_video_script"

	// QueueVideoRender renders the script with the avatar service and
	// downloads the file.
	QueueVideoRender = "q_video_render"

	// QueueVideoMetadata writes title, description and tags.
	QueueVideoMetadata = "q_video_metadata"

	// QueueVideoUpload publishes the file to YouTube.
	QueueVideoUpload = "q_video_upload"
)

// All lists every queue a worker should listen on.
var All = []string{QueueVideoScript, QueueVideoRender, QueueVideoMetadata, QueueVideoUpload}

// VideoTaskPayload is the JSON body pushed to every queue.
type VideoTaskPayload struct {
	VideoID uint `json:"video_id"`
}

type (
	ScriptTaskPayload   = VideoTaskPayload
	RenderTaskPayload   = VideoTaskPayload
	MetadataTaskPayload = VideoTaskPayload
	UploadTaskPayload   = VideoTaskPayload
)

// Marshal creates a JSON payload for a task.
func Marshal(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal decodes a payload popped from a queue.
func Unmarshal(payload string) (VideoTaskPayload, error) {
	var task VideoTaskPayload
	err := json.Unmarshal([]byte(payload), &task)
	return task, err
}
