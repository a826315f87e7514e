package figma

// IsExportable reports whether a node of type t may be rendered as a screen.
func IsExportable(t string) bool {
	switch t {
	case TypeFrame, TypeComponent, TypeComponentSet, TypeSection:
		return true
	}
	return false
}

// ExtractFrames walks the tree rooted at node and collects the exportable
// containers sitting directly under a page. Grandchildren of a page are never
// collected, even when exportable, so nested component instances do not
// multiply the result. Non-page nodes are descended depth-first in document
// order.
func ExtractFrames(node *Node) []FrameDescriptor {
	var frames []FrameDescriptor
	collectFrames(node, &frames)
	return frames
}

func collectFrames(node *Node, frames *[]FrameDescriptor) {
	if node == nil {
		return
	}

	if node.Type == TypeCanvas {
		for i := range node.Children {
			child := &node.Children[i]
			if IsExportable(child.Type) {
				*frames = append(*frames, FrameDescriptor{
					ID:     child.ID,
					Name:   child.Name,
					NodeID: child.ID,
				})
			}
		}
		return
	}

	for i := range node.Children {
		collectFrames(&node.Children[i], frames)
	}
}
