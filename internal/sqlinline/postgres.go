package sqlinline

const QPgCreateDonationsTable = `--sql d0793eec-02e9-44ed-9aeb-0efebecceaf2
create table if not exists donations (
	id          bigserial primary key,
	amount      numeric(12,2) not null check (amount > 0),
	note        text,
	occurred_on date not null default current_date,
	created_at  timestamptz not null default now(),
	updated_at  timestamptz not null default now()
);
`

const QPgCreateDailyTotalsTable = `--sql 85f7115a-d8ae-48b8-be6e-f148cd552ba0
create table if not exists daily_totals (
	id             bigserial primary key,
	day            date not null unique,
	starting_value numeric(12,2) not null,
	current_value  numeric(12,2) not null,
	final_value    numeric(12,2),
	observations   jsonb not null default '[]'::jsonb,
	status         text not null default 'open' check (status in ('open', 'closed')),
	created_at     timestamptz not null default now(),
	updated_at     timestamptz not null default now()
);
`

const QPgPing = `--sql eae097ae-004a-41ff-aa30-f7cdb8d8df72
select 1;
`

const QPgListDonations = `--sql 468a8403-3d93-4486-a38f-656e05237555
select id, amount::text, occurred_on::text, note, created_at, updated_at
from donations
order by occurred_on desc, id desc;
`

const QPgInsertDonation = `--sql 9256fc04-cf45-47cb-8f4a-3ed0d0e3cad1
insert into donations(amount, note, occurred_on)
values ($1::numeric, nullif($2::text, ''), $3::date)
returning id, amount::text, occurred_on::text, note, created_at, updated_at;
`

const QPgDeleteDonation = `--sql 1767b67d-1cab-426d-b060-9bab8fbfb416
delete from donations where id = $1::bigint;
`

const QPgClearDonations = `--sql 23f5098e-19c7-423b-a6c2-994561e4f467
delete from donations;
`

const QPgGetDailyTotal = `--sql 66ea5da7-3cba-4b9a-a0d7-272c817f6aac
select id, day::text, starting_value::text, current_value::text, final_value::text, observations, status, created_at, updated_at
from daily_totals
where day = $1::date;
`

const QPgLockDailyTotal = `--sql a3227c76-352c-4308-8cbd-2b85c1e577f0
select id, day::text, starting_value::text, current_value::text, final_value::text, observations, status, created_at, updated_at
from daily_totals
where day = $1::date
for update;
`

const QPgListDailyTotals = `--sql adb56742-af8d-4218-9ad7-c9f26a190837
select id, day::text, starting_value::text, current_value::text, final_value::text, observations, status, created_at, updated_at
from daily_totals
order by day desc;
`

// QPgUpsertDailyTotal merges a repeated creation for the same day into the
// existing open row. A closed row is left untouched and no row is returned.
const QPgUpsertDailyTotal = `--sql ea58dd57-d22e-4994-9aeb-99e4091a56bf
insert into daily_totals(day, starting_value, current_value, observations, status)
values ($1::date, $2::numeric, $2::numeric, jsonb_build_array($3::text), 'open')
on conflict (day) do update set
	starting_value = excluded.starting_value,
	current_value  = excluded.current_value,
	observations   = daily_totals.observations || jsonb_build_array($3::text),
	updated_at     = now()
where daily_totals.status = 'open'
returning id, day::text, starting_value::text, current_value::text, final_value::text, observations, status, created_at, updated_at;
`

const QPgUpdateDailyValue = `--sql 4efda0fb-52a9-4049-be94-c21b092c4485
update daily_totals
set current_value = $2::numeric,
	observations  = observations || jsonb_build_array($3::text),
	updated_at    = now()
where day = $1::date and status = 'open'
returning id, day::text, starting_value::text, current_value::text, final_value::text, observations, status, created_at, updated_at;
`

const QPgCloseDailyTotal = `--sql 8c016be2-55bb-4ae5-af82-c2e2d751ec41
update daily_totals
set current_value = $2::numeric,
	final_value   = $2::numeric,
	status        = 'closed',
	observations  = observations || jsonb_build_array($3::text),
	updated_at    = now()
where day = $1::date and status = 'open'
returning id, day::text, starting_value::text, current_value::text, final_value::text, observations, status, created_at, updated_at;
`

const QPgClearDailyTotals = `--sql 7c5a7514-19a1-4e63-9bb4-1ff7f2f1aa62
delete from daily_totals;
`

const QPgImportDonation = `--sql b9a1f227-f0fc-41e7-915e-23dfdc5d5f4e
insert into donations(id, amount, note, occurred_on, created_at, updated_at)
values ($1::bigint, $2::numeric, nullif($3::text, ''), $4::date, $5, $6);
`

const QPgImportDailyTotal = `--sql ce658ab4-7e56-41d2-9d2c-a08ad7b02da3
insert into daily_totals(id, day, starting_value, current_value, final_value, observations, status, created_at, updated_at)
values ($1::bigint, $2::date, $3::numeric, $4::numeric, $5::numeric, $6::jsonb, $7::text, $8, $9);
`

const QPgResetDonationSeq = `--sql 7338b9b4-5062-49b2-8f82-f6ad3bed87c9
select setval(pg_get_serial_sequence('donations', 'id'), coalesce((select max(id) from donations), 0) + 1, false);
`

const QPgResetDailyTotalSeq = `--sql 9f930bb1-f4ed-4476-acd6-92f11d5f3051
select setval(pg_get_serial_sequence('daily_totals', 'id'), coalesce((select max(id) from daily_totals), 0) + 1, false);
`
