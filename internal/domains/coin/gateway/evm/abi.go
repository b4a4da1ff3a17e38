package evm

// Zora coin factory (v3) subset: deploy + CoinCreated.
const factoryABIJSON = `[
  {"type":"function","name":"deploy","stateMutability":"payable",
   "inputs":[
     {"name":"payoutRecipient","type":"address"},
     {"name":"owners","type":"address[]"},
     {"name":"uri","type":"string"},
     {"name":"name","type":"string"},
     {"name":"symbol","type":"string"},
     {"name":"platformReferrer","type":"address"},
     {"name":"currency","type":"address"},
     {"name":"tickLower","type":"int24"},
     {"name":"orderSize","type":"uint256"}],
   "outputs":[{"name":"coin","type":"address"},{"name":"coinsPurchased","type":"uint256"}]},
  {"type":"event","name":"CoinCreated","anonymous":false,
   "inputs":[
     {"name":"caller","type":"address","indexed":true},
     {"name":"payoutRecipient","type":"address","indexed":true},
     {"name":"platformReferrer","type":"address","indexed":true},
     {"name":"currency","type":"address","indexed":false},
     {"name":"uri","type":"string","indexed":false},
     {"name":"name","type":"string","indexed":false},
     {"name":"symbol","type":"string","indexed":false},
     {"name":"coin","type":"address","indexed":false},
     {"name":"pool","type":"address","indexed":false},
     {"name":"version","type":"string","indexed":false}]}
]`

// Coin contract subset: pool trades + ERC-20 metadata reads.
const coinABIJSON = `[
  {"type":"function","name":"buy","stateMutability":"payable",
   "inputs":[
     {"name":"recipient","type":"address"},
     {"name":"orderSize","type":"uint256"},
     {"name":"minAmountOut","type":"uint256"},
     {"name":"sqrtPriceLimitX96","type":"uint160"},
     {"name":"tradeReferrer","type":"address"}],
   "outputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOut","type":"uint256"}]},
  {"type":"function","name":"sell","stateMutability":"nonpayable",
   "inputs":[
     {"name":"recipient","type":"address"},
     {"name":"orderSize","type":"uint256"},
     {"name":"minAmountOut","type":"uint256"},
     {"name":"sqrtPriceLimitX96","type":"uint160"},
     {"name":"tradeReferrer","type":"address"}],
   "outputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOut","type":"uint256"}]},
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`
