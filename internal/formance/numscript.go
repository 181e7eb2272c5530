package formance

// Numscript templates. Metadata is set inside each script via set_tx_meta()
// so the ledger transaction is self-describing.
//
// Accounts:
//   users:{id}:funding       external money brought in by a user
//   users:{id}:vault         the user's vault balance
//   users:{id}:payouts       money paid out to the user's wallet
//   deals:{id}:escrow        capital raised by a deal
//   platform:withdrawals:pending
//   platform:yield           dividend source

const numscriptInvestment = `vars {
  asset $asset
  number $amount
  account $user_id
  account $deal_id
  string $position_id
  string $amount_human
}

send [$asset $amount] (
  source = @users:$user_id:funding allowing unbounded overdraft
  destination = @deals:$deal_id:escrow
)

set_tx_meta("event_type", "investment")
set_tx_meta("position_id", $position_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptVaultDeposit = `vars {
  asset $asset
  number $amount
  account $user_id
  string $transaction_id
  string $amount_human
}

send [$asset $amount] (
  source = @users:$user_id:funding allowing unbounded overdraft
  destination = @users:$user_id:vault
)

set_tx_meta("event_type", "vault_deposit")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalRequested = `vars {
  asset $asset
  number $amount
  account $user_id
  string $transaction_id
  string $amount_human
}

send [$asset $amount] (
  source = @users:$user_id:vault
  destination = @platform:withdrawals:pending
)

set_tx_meta("event_type", "withdrawal_requested")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalSettled = `vars {
  asset $asset
  number $amount
  account $user_id
  string $transaction_id
  string $settlement_ref
  string $amount_human
}

send [$asset $amount] (
  source = @platform:withdrawals:pending
  destination = @users:$user_id:payouts
)

set_tx_meta("event_type", "withdrawal_settled")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("settlement_ref", $settlement_ref)
set_tx_meta("amount_human", $amount_human)
`

const numscriptWithdrawalReversed = `vars {
  asset $asset
  number $amount
  account $user_id
  string $transaction_id
  string $reverses
  string $amount_human
}

send [$asset $amount] (
  source = @platform:withdrawals:pending
  destination = @users:$user_id:vault
)

set_tx_meta("event_type", "withdrawal_reversed")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("reverses", $reverses)
set_tx_meta("amount_human", $amount_human)
`

const numscriptDividend = `vars {
  asset $asset
  number $amount
  account $user_id
  string $transaction_id
  string $amount_human
}

send [$asset $amount] (
  source = @platform:yield allowing unbounded overdraft
  destination = @users:$user_id:vault
)

set_tx_meta("event_type", "dividend")
set_tx_meta("transaction_id", $transaction_id)
set_tx_meta("amount_human", $amount_human)
`
