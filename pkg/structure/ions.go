package structure

// MolarWater is the molar concentration of pure water, used to turn a salt
// concentration into an ion count from the number of water molecules.
const MolarWater = 55.4

// IonRequest describes the salt and net charge wanted for a system.
type IonRequest struct {
	Conc         float64 // molar salt concentration
	Cation       string  // element symbol of the cation
	Anion        string  // element symbol of the anion
	WaterResName string
	NetCharge    int
}

// IonCounts is the result of an ion count query.
type IonCounts struct {
	Cations int // cations still to be placed
	Anions  int // anions still to be placed
	Waters  int

	ExistingCations int
	ExistingAnions  int
	CationConc      float64 // resulting molar concentrations
	AnionConc       float64
}

// Salt computes the conversion plan for a system with the given water
// count, existing ion counts and rounded net charge.
//
// The salt pair count is round(conc * waters / 55.4). Whatever charge would
// remain after adding that salt is neutralized toward want by first dropping
// planned ions of the excess sign and then adding counter ions. Counts never
// go below zero.
func Salt(req IonRequest, waters, cations, anions, charge int) IonCounts {
	nSalt := int(roundHalfAway(req.Conc * float64(waters) / MolarWater))
	c := max(nSalt-cations, 0)
	a := max(nSalt-anions, 0)

	excess := charge + c - a - req.NetCharge
	for excess > 0 {
		if c > 0 {
			c--
		} else {
			a++
		}
		excess--
	}
	for excess < 0 {
		if a > 0 {
			a--
		} else {
			c++
		}
		excess++
	}

	out := IonCounts{
		Cations:         c,
		Anions:          a,
		Waters:          waters,
		ExistingCations: cations,
		ExistingAnions:  anions,
	}
	if w := waters - c - a; w > 0 {
		out.CationConc = float64(cations+c) * MolarWater / float64(w)
		out.AnionConc = float64(anions+a) * MolarWater / float64(w)
	}
	return out
}

func roundHalfAway(x float64) float64 {
	if x < 0 {
		return -roundHalfAway(-x)
	}
	return float64(int64(x + 0.5))
}
