package episode

import (
	"archive/zip"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// NPZ member names written by the capture rig.
const (
	memberAction = "action.npy"
	memberQpos   = "observations/qpos.npy"
	memberQvel   = "observations/qvel.npy"
	memberEffort = "observations/effort.npy"
	imagePrefix  = "observations/images/"
)

// Load opens and fully parses an episode's numeric arrays and camera
// headers. Image pixel data is not read; use EachFrame for that. Any
// open/parse failure is reported as ErrCorrupt with the offending path.
func Load(ref Ref) (*Episode, error) {
	zr, err := zip.OpenReader(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, ref.Path, err)
	}
	defer zr.Close()

	ep := &Episode{Ref: ref}

	for _, member := range []struct {
		name string
		dst  **mat.Dense
	}{
		{memberAction, &ep.Action},
		{memberQpos, &ep.Qpos},
		{memberQvel, &ep.Qvel},
		{memberEffort, &ep.Effort},
	} {
		m, err := readMatrix(&zr.Reader, member.name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s: %v", ErrCorrupt, ref.Path, member.name, err)
		}
		*member.dst = m
	}

	cams, err := readCameraHeaders(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, ref.Path, err)
	}
	ep.Cameras = cams

	if err := ep.checkInvariants(); err != nil {
		return nil, err
	}
	return ep, nil
}

// EachFrame streams one camera's frames in time order, calling fn with the
// frame index and its raw uint8 pixels. The buffer is reused between
// calls; fn must copy data it keeps.
func (e *Episode) EachFrame(camera string, fn func(i int, data []byte) error) error {
	cam, ok := e.Camera(camera)
	if !ok {
		return fmt.Errorf("episode: %s: no camera stream %q", e.Path, camera)
	}

	zr, err := zip.OpenReader(e.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, e.Path, err)
	}
	defer zr.Close()

	rc, err := openMember(&zr.Reader, imagePrefix+camera+".npy")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, e.Path, err)
	}
	defer rc.Close()

	if err := skipNPYHeader(rc); err != nil {
		return fmt.Errorf("%w: %s: camera %s: %v", ErrCorrupt, e.Path, camera, err)
	}

	buf := make([]byte, cam.Height*cam.Width*cam.Channels)
	for i := 0; i < cam.Frames; i++ {
		if _, err := io.ReadFull(rc, buf); err != nil {
			return fmt.Errorf("%w: %s: camera %s frame %d: %v", ErrCorrupt, e.Path, camera, i, err)
		}
		if err := fn(i, buf); err != nil {
			return err
		}
	}
	return nil
}

func openMember(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("missing member %q", name)
}

func readMatrix(zr *zip.Reader, name string) (*mat.Dense, error) {
	rc, err := openMember(zr, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var m mat.Dense
	if err := npyio.Read(rc, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func readCameraHeaders(zr *zip.Reader) ([]Camera, error) {
	var cams []Camera
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, imagePrefix) || !strings.HasSuffix(f.Name, ".npy") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f.Name, imagePrefix), ".npy")

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("camera %s: %v", name, err)
		}
		r, err := npyio.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("camera %s: %v", name, err)
		}
		shape := r.Header.Descr.Shape
		dtype := r.Header.Descr.Type
		rc.Close()

		if len(shape) != 4 {
			return nil, fmt.Errorf("camera %s: expected [T,H,W,3] array, got shape %v", name, shape)
		}
		if !strings.Contains(dtype, "u1") {
			return nil, fmt.Errorf("camera %s: expected uint8 pixels, got dtype %q", name, dtype)
		}
		cams = append(cams, Camera{
			Name:     name,
			Frames:   shape[0],
			Height:   shape[1],
			Width:    shape[2],
			Channels: shape[3],
		})
	}
	sort.Slice(cams, func(i, j int) bool { return cams[i].Name < cams[j].Name })
	return cams, nil
}

// skipNPYHeader consumes the NPY magic, version and header block, leaving
// the reader positioned at the first data byte. npyio reads whole arrays
// only, so the streaming image path skips the header itself.
func skipNPYHeader(r io.Reader) error {
	var preamble [8]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return err
	}
	if string(preamble[:6]) != "\x93NUMPY" {
		return fmt.Errorf("not an NPY stream")
	}

	var headerLen int64
	switch major := preamble[6]; major {
	case 1:
		var n [2]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return err
		}
		headerLen = int64(binary.LittleEndian.Uint16(n[:]))
	case 2, 3:
		var n [4]byte
		if _, err := io.ReadFull(r, n[:]); err != nil {
			return err
		}
		headerLen = int64(binary.LittleEndian.Uint32(n[:]))
	default:
		return fmt.Errorf("unsupported NPY version %d", major)
	}

	_, err := io.CopyN(io.Discard, r, headerLen)
	return err
}
