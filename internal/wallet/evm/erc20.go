package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	transferMethodID  = common.Hex2Bytes("a9059cbb")
	balanceOfMethodID = common.Hex2Bytes("70a08231")
)

const abiWordLength = 32

// transferData encodes transfer(address,uint256).
func transferData(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, len(transferMethodID)+2*abiWordLength)
	data = append(data, transferMethodID...)
	data = append(data, common.LeftPadBytes(to.Bytes(), abiWordLength)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), abiWordLength)...)
	return data
}

// balanceOfData encodes balanceOf(address).
func balanceOfData(account common.Address) []byte {
	data := make([]byte, 0, len(balanceOfMethodID)+abiWordLength)
	data = append(data, balanceOfMethodID...)
	data = append(data, common.LeftPadBytes(account.Bytes(), abiWordLength)...)
	return data
}
