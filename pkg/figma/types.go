package figma

// Node types the extractor cares about. The Figma API calls a page a CANVAS.
const (
	TypeDocument     = "DOCUMENT"
	TypeCanvas       = "CANVAS"
	TypeFrame        = "FRAME"
	TypeComponent    = "COMPONENT"
	TypeComponentSet = "COMPONENT_SET"
	TypeSection      = "SECTION"
)

// FileHandle identifies a design file and optionally pins one node inside it.
type FileHandle struct {
	FileKey string `json:"fileKey"`
	NodeID  string `json:"nodeId,omitempty"`
}

// FileResponse represents the response from the Figma file endpoint.
// Only the fields the frame pipeline reads are decoded.
type FileResponse struct {
	Name         string `json:"name"`
	LastModified string `json:"lastModified"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Version      string `json:"version"`
	Document     Node   `json:"document"`
}

// NodesResponse represents the response from the nodes endpoint when fetching specific nodes.
type NodesResponse struct {
	Name         string               `json:"name"`
	LastModified string               `json:"lastModified"`
	Version      string               `json:"version"`
	Nodes        map[string]*NodeData `json:"nodes"`
}

// NodeData wraps a requested node. The API returns null for ids it cannot resolve.
type NodeData struct {
	Document Node `json:"document"`
}

// ImagesResponse is the render endpoint's reply: node id to a temporary
// image URL, or null when that node could not be rendered.
type ImagesResponse struct {
	Err    string             `json:"err"`
	Images map[string]*string `json:"images"`
}

// Node is one element of the document tree. The tree is acyclic by
// construction and is never mutated after decoding.
type Node struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Children            []Node     `json:"children,omitempty"`
	AbsoluteBoundingBox *Rectangle `json:"absoluteBoundingBox,omitempty"`
}

// Rectangle represents a bounding box with position and dimensions.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FrameDescriptor is one exportable top-level container. ImageURL stays nil
// until the export step resolves a rendered image for it.
type FrameDescriptor struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	NodeID   string  `json:"nodeId"`
	ImageURL *string `json:"imageUrl"`
}
