// Package forward implements the quasi-static 1D frequency-domain
// electromagnetic forward simulation: the secondary vertical magnetic field
// of a vertical magnetic dipole over a layered conductive earth, expressed in
// parts-per-million of the free-space primary field.
package forward

import (
	"math"
	"math/cmplx"
)

// mu0 is the magnetic permeability of free space in H/m. Magnetic earths are
// out of scope; every layer carries mu0.
const mu0 = 4e-7 * math.Pi

// rTE computes the TE-mode reflection coefficient at the air-earth interface
// for horizontal wavenumber lambda and angular frequency omega. cond holds
// one conductivity per layer including the basement half-space; thick holds
// one thickness per layer above the half-space, so len(cond) == len(thick)+1.
//
// The surface admittance is accumulated bottom-up through the standard
// recursion with tanh(u_k t_k); in the quasi-static limit the air wavenumber
// is lambda itself.
func rTE(lambda, omega float64, cond, thick []float64) complex128 {
	iwm := complex(0, omega*mu0)
	lam2 := complex(lambda*lambda, 0)

	n := len(cond)
	uN := cmplx.Sqrt(lam2 + iwm*complex(cond[n-1], 0))
	Y := uN / iwm
	for k := n - 2; k >= 0; k-- {
		uk := cmplx.Sqrt(lam2 + iwm*complex(cond[k], 0))
		yk := uk / iwm
		arg := uk * complex(thick[k], 0)
		// tanh saturates at 1 long before cosh(2x) overflows to Inf, which
		// would turn cmplx.Tanh into NaN for electrically thick layers.
		th := complex(1, 0)
		if real(arg) < 20 {
			th = cmplx.Tanh(arg)
		}
		Y = yk * (Y + yk*th) / (yk + Y*th)
	}

	Y0 := complex(lambda, 0) / iwm
	return (Y0 - Y) / (Y0 + Y)
}
