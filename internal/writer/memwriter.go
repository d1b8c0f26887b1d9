package writer

// MemWriter captures heap images in memory.
type MemWriter struct {
	Buf []byte
}

var _ ImageWriter = (*MemWriter)(nil)

// WriteImage copies buf, since region bytes change after the call.
func (w *MemWriter) WriteImage(buf []byte) error {
	w.Buf = append(w.Buf[:0], buf...)
	return nil
}
