package detection

import (
	"image"
	"testing"
)

func TestFindExternalContours_Empty(t *testing.T) {
	if got := FindExternalContours(newGray(20, 20, 0), ChainNone); len(got) != 0 {
		t.Errorf("blank mask: got %d contours, want 0", len(got))
	}
	if got := FindExternalContours(newGray(0, 0, 0), ChainNone); len(got) != 0 {
		t.Errorf("empty image: got %d contours, want 0", len(got))
	}
}

func TestFindExternalContours_SinglePixel(t *testing.T) {
	g := newGray(5, 5, 0)
	g.Pix[2*5+3] = 255

	got := FindExternalContours(g, ChainNone)
	if len(got) != 1 {
		t.Fatalf("got %d contours, want 1", len(got))
	}
	if len(got[0]) != 1 || got[0][0] != image.Pt(3, 2) {
		t.Errorf("got %v, want [(3,2)]", got[0])
	}
}

func TestFindExternalContours_TraceOrder(t *testing.T) {
	g := newGray(6, 5, 0)
	fillRect(g, 1, 1, 4, 3, 255) // 3x2 block

	got := FindExternalContours(g, ChainNone)
	if len(got) != 1 {
		t.Fatalf("got %d contours, want 1", len(got))
	}

	want := Contour{{1, 1}, {2, 1}, {3, 1}, {3, 2}, {2, 2}, {1, 2}}
	if len(got[0]) != len(want) {
		t.Fatalf("got %v, want %v", got[0], want)
	}
	for i := range want {
		if got[0][i] != want[i] {
			t.Fatalf("got %v, want %v", got[0], want)
		}
	}
}

func TestFindExternalContours_Clockwise(t *testing.T) {
	g := newGray(40, 40, 0)
	fillDisk(g, 20, 20, 12, 255)

	got := FindExternalContours(g, ChainNone)
	if len(got) != 1 {
		t.Fatalf("got %d contours, want 1", len(got))
	}
	if signedArea(got[0]) <= 0 {
		t.Errorf("contour is not clockwise in image coordinates (signed area %v)", signedArea(got[0]))
	}
	if got[0][0] != image.Pt(20, 8) {
		t.Errorf("start: got %v, want top-most pixel (20,8)", got[0][0])
	}
}

func TestFindExternalContours_ChainModes(t *testing.T) {
	g := newGray(12, 10, 0)
	fillRect(g, 2, 2, 9, 7, 255) // 7x5 block, corners (2,2) and (8,6)

	none := FindExternalContours(g, ChainNone)
	if len(none) != 1 || len(none[0]) != 2*(6+4) {
		t.Fatalf("ChainNone: got %v", none)
	}

	simple := FindExternalContours(g, ChainSimple)
	want := Contour{{2, 2}, {8, 2}, {8, 6}, {2, 6}}
	if len(simple) != 1 || len(simple[0]) != len(want) {
		t.Fatalf("ChainSimple: got %v, want %v", simple, want)
	}
	for i := range want {
		if simple[0][i] != want[i] {
			t.Fatalf("ChainSimple: got %v, want %v", simple[0], want)
		}
	}
}

func TestFindExternalContours_LineIsTracedBothWays(t *testing.T) {
	g := newGray(8, 3, 0)
	fillRect(g, 1, 1, 4, 2, 255) // horizontal run of 3

	got := FindExternalContours(g, ChainNone)
	want := Contour{{1, 1}, {2, 1}, {3, 1}, {2, 1}}
	if len(got) != 1 || len(got[0]) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[0][i] != want[i] {
			t.Fatalf("got %v, want %v", got[0], want)
		}
	}
}

func TestFindExternalContours_IgnoresHolesAndNested(t *testing.T) {
	g := newGray(40, 40, 0)
	fillRect(g, 5, 5, 35, 35, 255)
	fillRect(g, 10, 10, 30, 30, 0)   // hole
	fillRect(g, 15, 15, 25, 25, 255) // island inside the hole

	got := FindExternalContours(g, ChainNone)
	if len(got) != 1 {
		t.Fatalf("got %d contours, want only the outer ring", len(got))
	}
	box := BoundingRect(got[0])
	if box != (BoundingBox{X: 5, Y: 5, Width: 30, Height: 30}) {
		t.Errorf("outer box: got %+v", box)
	}
}

func TestFindExternalContours_DiagonalConnectivity(t *testing.T) {
	g := newGray(6, 6, 0)
	g.Pix[1*6+1] = 255
	g.Pix[2*6+2] = 255
	g.Pix[3*6+3] = 255

	if got := FindExternalContours(g, ChainNone); len(got) != 1 {
		t.Errorf("diagonal pixels: got %d contours, want 1", len(got))
	}
}

func TestFindExternalContours_TouchesBorder(t *testing.T) {
	g := newGray(10, 10, 0)
	fillRect(g, 0, 0, 10, 4, 255)

	got := FindExternalContours(g, ChainNone)
	if len(got) != 1 {
		t.Fatalf("got %d contours, want 1", len(got))
	}
	if box := BoundingRect(got[0]); box != (BoundingBox{X: 0, Y: 0, Width: 10, Height: 4}) {
		t.Errorf("got %+v", box)
	}
}

func TestLargestContour(t *testing.T) {
	g := newGray(50, 30, 0)
	fillRect(g, 2, 2, 8, 8, 255)    // 6x6
	fillRect(g, 20, 5, 45, 25, 255) // 25x20
	fillRect(g, 2, 20, 10, 28, 255) // 8x8

	contours := FindExternalContours(g, ChainNone)
	if len(contours) != 3 {
		t.Fatalf("got %d contours, want 3", len(contours))
	}

	largest, ok := LargestContour(contours)
	if !ok {
		t.Fatal("LargestContour reported none")
	}
	if box := BoundingRect(largest); box.X != 20 || box.Width != 25 {
		t.Errorf("picked %+v, want the 25x20 block", box)
	}

	if _, ok := LargestContour(nil); ok {
		t.Error("empty input should report false")
	}
}

func TestLargestContour_TieKeepsFirst(t *testing.T) {
	a := Contour{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	b := Contour{{10, 0}, {14, 0}, {14, 4}, {10, 4}}

	got, _ := LargestContour([]Contour{a, b})
	if got[0] != a[0] {
		t.Errorf("tie picked %v, want the first contour", got)
	}
}

func TestParseChainApprox(t *testing.T) {
	tests := []struct {
		input   string
		want    ChainApprox
		wantErr bool
	}{
		{"none", ChainNone, false},
		{"", ChainNone, false},
		{"SIMPLE", ChainSimple, false},
		{"tc89", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChainApprox(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.input, got, tt.want)
		}
	}
}
