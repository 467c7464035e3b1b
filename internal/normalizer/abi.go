package normalizer

// Event ABIs per vault family. Generic vaults reference markets by
// condition id; campaign vaults (genesis, promotion) reference markets by
// their enumerated index and register the mapping with MarketAdded.

const genericVaultABI = `[
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"conditionId","type":"bytes32","indexed":true},
		{"name":"yesAmount","type":"uint256","indexed":false},
		{"name":"noAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdraw","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"conditionId","type":"bytes32","indexed":true},
		{"name":"yesAmount","type":"uint256","indexed":false},
		{"name":"noAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Claim","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"conditionId","type":"bytes32","indexed":true},
		{"name":"yieldAmount","type":"uint256","indexed":false},
		{"name":"usdAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketAdded","anonymous":false,"inputs":[
		{"name":"conditionId","type":"bytes32","indexed":true}]},
	{"type":"event","name":"MarketEnded","anonymous":false,"inputs":[
		{"name":"conditionId","type":"bytes32","indexed":true}]},
	{"type":"event","name":"MarketStatusChanged","anonymous":false,"inputs":[
		{"name":"conditionId","type":"bytes32","indexed":true},
		{"name":"status","type":"uint8","indexed":false}]}
]`

const genesisVaultABI = `[
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"yesAmount","type":"uint256","indexed":false},
		{"name":"noAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"BatchDeposit","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndexes","type":"uint256[]","indexed":false},
		{"name":"yesAmounts","type":"uint256[]","indexed":false},
		{"name":"noAmounts","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"Withdraw","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"yesAmount","type":"uint256","indexed":false},
		{"name":"noAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"BatchWithdraw","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndexes","type":"uint256[]","indexed":false},
		{"name":"yesAmounts","type":"uint256[]","indexed":false},
		{"name":"noAmounts","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"Claim","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"yieldAmount","type":"uint256","indexed":false},
		{"name":"usdAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketAdded","anonymous":false,"inputs":[
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"conditionId","type":"bytes32","indexed":false}]},
	{"type":"event","name":"MarketEnded","anonymous":false,"inputs":[
		{"name":"marketIndex","type":"uint256","indexed":true}]}
]`

const promotionVaultABI = `[
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"yesAmount","type":"uint256","indexed":false},
		{"name":"noAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdraw","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"yesAmount","type":"uint256","indexed":false},
		{"name":"noAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Claim","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"yieldAmount","type":"uint256","indexed":false},
		{"name":"usdAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"MarketAdded","anonymous":false,"inputs":[
		{"name":"marketIndex","type":"uint256","indexed":true},
		{"name":"conditionId","type":"bytes32","indexed":false}]},
	{"type":"event","name":"MarketEnded","anonymous":false,"inputs":[
		{"name":"marketIndex","type":"uint256","indexed":true}]}
]`

// ABIFor returns the event ABI JSON for a family.
func ABIFor(family string) (string, bool) {
	switch family {
	case "generic":
		return genericVaultABI, true
	case "genesis":
		return genesisVaultABI, true
	case "promotion":
		return promotionVaultABI, true
	}
	return "", false
}
