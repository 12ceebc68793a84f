package sqlinline

const QLiteCreateDonationsTable = `--sql a328c4bd-3b67-432e-893a-f154796ff006
create table if not exists donations (
	id          integer primary key autoincrement,
	amount      real not null check (amount > 0),
	occurred_on text not null,
	note        text,
	created_at  text not null,
	updated_at  text not null
);
`

const QLiteCreateDonationsIndex = `--sql 6cb8a929-3b84-4515-8e98-2b20e47c5658
create index if not exists idx_donations_occurred_on on donations(occurred_on);
`

const QLiteCreateDailyTotalsTable = `--sql 92fa02c4-2481-4ccd-82f2-3e181c44a4ee
create table if not exists daily_totals (
	id             integer primary key autoincrement,
	day            text not null unique,
	starting_value real not null,
	current_value  real not null,
	final_value    real,
	observations   text not null default '[]',
	status         text not null default 'open',
	created_at     text not null,
	updated_at     text not null
);
`

const QLitePing = `--sql 1d7fc8f3-aba9-4dd5-8783-3eddf9a97682
select 1;
`

const QLiteListDonations = `--sql d7db59d4-8553-4253-b388-cf68517af930
select id, amount, occurred_on, note, created_at, updated_at
from donations
order by occurred_on desc, id desc;
`

const QLiteInsertDonation = `--sql 879bb725-4d5e-44da-b684-6b841f940bb1
insert into donations(amount, occurred_on, note, created_at, updated_at)
values (?, ?, ?, ?, ?);
`

const QLiteClearDonations = `--sql a6ec3b54-71e8-4781-b600-7455d12d6dbc
delete from donations;
`

const QLiteGetDailyTotal = `--sql 7119f33a-746f-481e-af7f-968a43b3d630
select id, day, starting_value, current_value, final_value, observations, status, created_at, updated_at
from daily_totals
where day = ?;
`

const QLiteListDailyTotals = `--sql d4ed92d5-40ae-427a-8d69-485e3687bf42
select id, day, starting_value, current_value, final_value, observations, status, created_at, updated_at
from daily_totals
order by day desc;
`

const QLiteInsertDailyTotal = `--sql 76c45e63-9f57-42e2-bc21-d772ffad8ecc
insert into daily_totals(day, starting_value, current_value, observations, status, created_at, updated_at)
values (?, ?, ?, ?, 'open', ?, ?);
`

const QLiteUpdateDailyTotal = `--sql f9516b21-506d-4d0b-8688-81b05b8bbf9b
update daily_totals
set current_value = ?, final_value = ?, observations = ?, status = ?, updated_at = ?
where day = ?;
`

const QLiteClearDailyTotals = `--sql 66daa24d-8c11-4ffd-9629-adf0732208ed
delete from daily_totals;
`

const QLiteImportDonation = `--sql 9aa8895d-4c31-476b-a6e3-ea71c7a57364
insert into donations(id, amount, occurred_on, note, created_at, updated_at)
values (?, ?, ?, ?, ?, ?);
`

const QLiteImportDailyTotal = `--sql d4b6f34d-4a05-4fe0-84cb-761bd0112e0a
insert into daily_totals(id, day, starting_value, current_value, final_value, observations, status, created_at, updated_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
