package engine

import (
	"math"
	"math/rand"
	"testing"

	"gorgonia.org/tensor"
)

// newRandomMatrix creates a 2D float64 dense tensor with the given shape and
// deterministic pseudo-random contents.
func newRandomMatrix(t testing.TB, rows, cols int, r *rand.Rand) *tensor.Dense {
	t.Helper()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(data),
	)
}

// newZeroMatrix creates a zero-initialized 2D float64 dense tensor.
func newZeroMatrix(rows, cols int) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(rows, cols),
		tensor.WithBacking(make([]float64, rows*cols)),
	)
}

// equalApprox reports whether two float64 slices are equal within a tolerance.
func equalApprox(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

// extractBacking is a helper to get the []float64 backing of a dense tensor.
func extractBacking(t *testing.T, d *tensor.Dense) []float64 {
	t.Helper()
	data, ok := d.Data().([]float64)
	if !ok {
		t.Fatalf("expected []float64 backing, got %T", d.Data())
	}
	return data
}

// naiveMatMul multiplies row-major a (m x k) by b (k x n).
func naiveMatMul(a, b []float64, m, k, n int) []float64 {
	out := make([]float64, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var s float64
			for p := 0; p < k; p++ {
				s += a[i*k+p] * b[p*n+j]
			}
			out[i*n+j] = s
		}
	}
	return out
}

func TestEngMatMulMatchesNaive(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	const (
		m = 4
		k = 3
		n = 5
	)

	a := newRandomMatrix(t, m, k, r)
	b := newRandomMatrix(t, k, n, r)
	c := newZeroMatrix(m, n)

	eng := New()
	if err := eng.MatMul(a, b, c); err != nil {
		t.Fatalf("Eng.MatMul error: %v", err)
	}

	got := extractBacking(t, c)
	want := naiveMatMul(extractBacking(t, a), extractBacking(t, b), m, k, n)

	if !equalApprox(got, want, 1e-12) {
		t.Fatalf("Eng.MatMul result differs from naive product.\n got:  %v\n want: %v", got, want)
	}
	if calls := eng.MatMuls(); calls != 1 {
		t.Fatalf("expected 1 MatMul call, got %d", calls)
	}
}

// Float32 inputs take the same path and must agree with StdEng.
func TestEngMatMulFloat32MatchesStdEng(t *testing.T) {
	const (
		m = 3
		k = 2
		n = 4
	)

	aData := make([]float32, m*k)
	bData := make([]float32, k*n)
	for i := range aData {
		aData[i] = float32(i) + 0.5
	}
	for i := range bData {
		bData[i] = float32(i) - 0.25
	}

	a := tensor.New(tensor.WithShape(m, k), tensor.WithBacking(aData))
	b := tensor.New(tensor.WithShape(k, n), tensor.WithBacking(bData))
	cCPU := tensor.New(tensor.WithShape(m, n), tensor.WithBacking(make([]float32, m*n)))
	cEng := tensor.New(tensor.WithShape(m, n), tensor.WithBacking(make([]float32, m*n)))

	var cpu tensor.StdEng
	if err := cpu.MatMul(a, b, cCPU); err != nil {
		t.Fatalf("StdEng.MatMul (float32) error: %v", err)
	}

	eng := New()
	if err := eng.MatMul(a, b, cEng); err != nil {
		t.Fatalf("Eng.MatMul (float32) error: %v", err)
	}

	got := cEng.Data().([]float32)
	want := cCPU.Data().([]float32)
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("result mismatch at index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// Test that a clear shape mismatch between A and B results in a descriptive error.
func TestEngMatMulShapeMismatchAB(t *testing.T) {
	eng := New()

	// A: (2 x 3), B: (4 x 5) -> inner dims 3 vs 4 mismatch
	a := newZeroMatrix(2, 3)
	b := newZeroMatrix(4, 5)
	c := newZeroMatrix(2, 5)

	err := eng.MatMul(a, b, c)
	if err == nil {
		t.Fatalf("expected error for shape-mismatched MatMul, got nil")
	}

	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error message for shape mismatch")
	}
}

// Test that a mismatch between the implied result shape and prealloc's shape
// is reported as an error.
func TestEngMatMulPreallocShapeMismatch(t *testing.T) {
	eng := New()

	// A: (2 x 3), B: (3 x 4) -> result should be (2 x 4), but we give (2 x 3).
	a := newZeroMatrix(2, 3)
	b := newZeroMatrix(3, 4)
	c := newZeroMatrix(2, 3) // incorrect shape

	if err := eng.MatMul(a, b, c); err == nil {
		t.Fatalf("expected error for prealloc shape mismatch, got nil")
	}
}

func TestEngMatMulDtypeMismatch(t *testing.T) {
	eng := New()

	a := newZeroMatrix(2, 2)
	b := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(make([]float32, 4)))
	c := newZeroMatrix(2, 2)

	if err := eng.MatMul(a, b, c); err == nil {
		t.Fatalf("expected error for dtype mismatch, got nil")
	}
}

func TestEngTrace(t *testing.T) {
	eng := New()

	a := tensor.New(
		tensor.WithShape(3, 3),
		tensor.WithBacking([]float64{
			1, 2, 3,
			4, 5, 6,
			7, 8, 9,
		}),
	)

	got, err := eng.Trace(a)
	if err != nil {
		t.Fatalf("Eng.Trace error: %v", err)
	}
	if got != 15 {
		t.Fatalf("Eng.Trace = %v, want 15", got)
	}

	// The input must keep its shape; Trace only reshapes a shallow clone.
	if shape := a.Shape(); shape[0] != 3 || shape[1] != 3 {
		t.Fatalf("Eng.Trace changed the input shape to %v", shape)
	}
}

func TestEngTraceRejectsNonSquare(t *testing.T) {
	eng := New()

	if _, err := eng.Trace(newZeroMatrix(2, 3)); err == nil {
		t.Fatalf("expected error for non-square Trace, got nil")
	}
}

// --- Benchmarks ------------------------------------------------------------

// benchmarkMatMul is a helper that benchmarks either StdEng or Eng MatMul
// on a single matrix size configuration.
func benchmarkMatMul(b *testing.B, m, k, n int, checked bool) {
	b.Helper()

	r := rand.New(rand.NewSource(42))

	a := newRandomMatrix(b, m, k, r)
	bMat := newRandomMatrix(b, k, n, r)
	c := newZeroMatrix(m, n)

	var (
		cpu tensor.StdEng
		eng = New()
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if checked {
			if err := eng.MatMul(a, bMat, c); err != nil {
				b.Fatalf("Eng.MatMul error: %v", err)
			}
		} else {
			if err := cpu.MatMul(a, bMat, c); err != nil {
				b.Fatalf("StdEng.MatMul error: %v", err)
			}
		}
	}
}

func BenchmarkStdEngMatMul_4x4(b *testing.B) {
	benchmarkMatMul(b, 4, 4, 4, false)
}

func BenchmarkEngMatMul_4x4(b *testing.B) {
	benchmarkMatMul(b, 4, 4, 4, true)
}

func BenchmarkStdEngMatMul_64x64(b *testing.B) {
	benchmarkMatMul(b, 64, 64, 64, false)
}

func BenchmarkEngMatMul_64x64(b *testing.B) {
	benchmarkMatMul(b, 64, 64, 64, true)
}
