package cryptox

import (
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/dmitrijs2005/medkeeper/internal/common"
)

// GeneratePIN returns a uniformly random PIN from [common.PINMin, common.PINMax].
func GeneratePIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(common.PINMax-common.PINMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+common.PINMin, 10), nil
}
