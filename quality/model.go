package quality

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type Kernel string

const (
	KernelLinear     Kernel = "linear"
	KernelPolynomial Kernel = "polynomial"
	KernelRBF        Kernel = "rbf"
	KernelSigmoid    Kernel = "sigmoid"
)

// Model is a parsed libsvm regression model with dense support vectors.
type Model struct {
	SVMType        string
	Kernel         Kernel
	Gamma          float64
	Coef0          float64
	Degree         int
	Rho            float64
	NumFeatures    int
	SupportVectors [][]float64
	Coefs          []float64
}

// LoadModelFile reads a libsvm text model from path.
func LoadModelFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	defer f.Close()
	md, err := ParseModel(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return md, nil
}

// ParseModel reads the libsvm text format. Only epsilon_svr and nu_svr
// models are accepted. Feature indices are 1-based; the highest index seen
// sets NumFeatures.
func ParseModel(r io.Reader) (*Model, error) {
	md := &Model{Degree: 3, Kernel: KernelLinear}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		haveType, haveRho, haveGamma bool
		totalSV                      = -1
		line                         int
	)
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: line %d: %s", ErrModelLoad, line, fmt.Sprintf(format, args...))
	}

	inSV := false
	type sparse struct {
		idx []int
		val []float64
	}
	var rows []sparse

	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if inSV {
			coef, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, bad("bad coefficient %q", fields[0])
			}
			var row sparse
			for _, f := range fields[1:] {
				k, v, ok := strings.Cut(f, ":")
				if !ok {
					return nil, bad("bad feature %q", f)
				}
				idx, err := strconv.Atoi(k)
				if err != nil || idx < 1 {
					return nil, bad("bad feature index %q", k)
				}
				val, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, bad("bad feature value %q", v)
				}
				row.idx = append(row.idx, idx)
				row.val = append(row.val, val)
				md.NumFeatures = max(md.NumFeatures, idx)
			}
			md.Coefs = append(md.Coefs, coef)
			rows = append(rows, row)
			continue
		}

		key := fields[0]
		arg := ""
		if len(fields) > 1 {
			arg = fields[1]
		}
		var err error
		switch key {
		case "svm_type":
			if arg != "epsilon_svr" && arg != "nu_svr" {
				return nil, bad("unsupported svm_type %q", arg)
			}
			md.SVMType, haveType = arg, true
		case "kernel_type":
			switch k := Kernel(arg); k {
			case KernelLinear, KernelPolynomial, KernelRBF, KernelSigmoid:
				md.Kernel = k
			default:
				return nil, bad("unsupported kernel_type %q", arg)
			}
		case "gamma":
			md.Gamma, err = strconv.ParseFloat(arg, 64)
			haveGamma = true
		case "coef0":
			md.Coef0, err = strconv.ParseFloat(arg, 64)
		case "degree":
			md.Degree, err = strconv.Atoi(arg)
		case "rho":
			md.Rho, err = strconv.ParseFloat(arg, 64)
			haveRho = true
		case "total_sv":
			totalSV, err = strconv.Atoi(arg)
		case "SV":
			inSV = true
		case "nr_class", "label", "probA", "probB", "nr_sv":
		default:
			return nil, bad("unknown key %q", key)
		}
		if err != nil {
			return nil, bad("bad value for %s: %v", key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	switch {
	case !haveType:
		return nil, fmt.Errorf("%w: missing svm_type", ErrModelLoad)
	case !haveRho:
		return nil, fmt.Errorf("%w: missing rho", ErrModelLoad)
	case !inSV || len(rows) == 0:
		return nil, fmt.Errorf("%w: no support vectors", ErrModelLoad)
	case totalSV >= 0 && totalSV != len(rows):
		return nil, fmt.Errorf("%w: total_sv %d but %d vectors", ErrModelLoad, totalSV, len(rows))
	case md.Kernel != KernelLinear && !haveGamma:
		return nil, fmt.Errorf("%w: %s kernel needs gamma", ErrModelLoad, md.Kernel)
	}

	md.SupportVectors = make([][]float64, len(rows))
	for i, row := range rows {
		dense := make([]float64, md.NumFeatures)
		for j, idx := range row.idx {
			dense[idx-1] = row.val[j]
		}
		md.SupportVectors[i] = dense
	}
	return md, nil
}
