package figma

import (
	"testing"
)

func page(id string, children ...Node) Node {
	return Node{ID: id, Name: "Page " + id, Type: TypeCanvas, Children: children}
}

func TestExtractFrames(t *testing.T) {
	tests := []struct {
		name    string
		root    Node
		wantIDs []string
	}{
		{
			name: "three pages with nested component",
			root: Node{
				ID:   "0:0",
				Type: TypeDocument,
				Children: []Node{
					page("0:1",
						Node{ID: "1:1", Name: "Home", Type: TypeFrame, Children: []Node{
							{ID: "1:9", Name: "Button", Type: TypeComponent},
						}},
						Node{ID: "1:2", Name: "Login", Type: TypeFrame},
					),
					page("0:2",
						Node{ID: "2:1", Name: "Cart", Type: TypeFrame},
						Node{ID: "2:2", Name: "Checkout", Type: TypeFrame},
					),
					page("0:3",
						Node{ID: "3:1", Name: "Card", Type: TypeComponent},
						Node{ID: "3:2", Name: "Variants", Type: TypeComponentSet},
					),
				},
			},
			wantIDs: []string{"1:1", "1:2", "2:1", "2:2", "3:1", "3:2"},
		},
		{
			name: "non exportable page children skipped",
			root: Node{
				ID:   "0:0",
				Type: TypeDocument,
				Children: []Node{
					page("0:1",
						Node{ID: "1:1", Name: "Group", Type: "GROUP", Children: []Node{
							{ID: "1:2", Name: "Inner", Type: TypeFrame},
						}},
						Node{ID: "1:3", Name: "Note", Type: "TEXT"},
						Node{ID: "1:4", Name: "Flows", Type: TypeSection},
					),
				},
			},
			wantIDs: []string{"1:4"},
		},
		{
			name:    "leaf document",
			root:    Node{ID: "0:0", Type: TypeDocument},
			wantIDs: nil,
		},
		{
			name:    "page passed directly",
			root:    page("0:1", Node{ID: "1:1", Type: TypeFrame}),
			wantIDs: []string{"1:1"},
		},
		{
			name: "frame outside any page is not collected",
			root: Node{
				ID:   "0:0",
				Type: TypeDocument,
				Children: []Node{
					{ID: "9:9", Name: "Loose", Type: TypeFrame},
				},
			},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractFrames(&tt.root)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("ExtractFrames() returned %d frames, want %d: %+v", len(got), len(tt.wantIDs), got)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("ExtractFrames()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
				if got[i].NodeID != id {
					t.Errorf("ExtractFrames()[%d].NodeID = %q, want %q", i, got[i].NodeID, id)
				}
				if got[i].ImageURL != nil {
					t.Errorf("ExtractFrames()[%d].ImageURL should be nil before export", i)
				}
			}
		})
	}
}

// No collected frame may have another exportable ancestor below its page.
func TestExtractFrames_NoGrandchildren(t *testing.T) {
	deep := Node{ID: "0:0", Type: TypeDocument, Children: []Node{
		page("0:1",
			Node{ID: "1:1", Type: TypeFrame, Children: []Node{
				{ID: "1:2", Type: TypeFrame, Children: []Node{
					{ID: "1:3", Type: TypeComponent},
				}},
				{ID: "1:4", Type: TypeSection},
			}},
		),
	}}

	got := ExtractFrames(&deep)
	if len(got) != 1 || got[0].ID != "1:1" {
		t.Fatalf("ExtractFrames() = %+v, want only 1:1", got)
	}
}
